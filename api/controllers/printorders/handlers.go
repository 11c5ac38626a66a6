package printorders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storyprint-backend/api/middleware"
	"github.com/angelmondragon/storyprint-backend/api/responses"
	"github.com/angelmondragon/storyprint-backend/api/validators"
	svc "github.com/angelmondragon/storyprint-backend/internal/printorders"
	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
	"github.com/angelmondragon/storyprint-backend/pkg/pagination"
)

type orderAction func(ctx context.Context, actor svc.Actor, id uuid.UUID) (*models.PrintOrder, error)

// AdminList returns the admin queue filtered by lifecycle bucket.
func AdminList(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "print order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := validators.ParseQueryEnum(r, "filter", enums.PrintOrderFilterAll, enums.ParsePrintOrderFilter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := service.List(r.Context(), actor, svc.ListInput{Filter: filter, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.PageDTO(page, svc.AdminDTO))
	}
}

// AdminDetail returns the full order including its audit trails.
func AdminDetail(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(service, logg, svc.AdminDTO, func(s svc.Service) orderAction { return s.Get })
}

func AdminApprove(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(service, logg, svc.AdminDTO, func(s svc.Service) orderAction { return s.Approve })
}

func AdminSubmit(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(service, logg, svc.AdminDTO, func(s svc.Service) orderAction { return s.Submit })
}

func AdminConfirm(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(service, logg, svc.AdminDTO, func(s svc.Service) orderAction { return s.Confirm })
}

func AdminRefreshStatus(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(service, logg, svc.AdminDTO, func(s svc.Service) orderAction { return s.RefreshStatus })
}

func AdminRevalidate(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(service, logg, svc.AdminDTO, func(s svc.Service) orderAction { return s.Revalidate })
}

// AdminCancel cancels locally and, when the order reached the broker, remotely.
// The body is optional: {"reason": "..."}.
func AdminCancel(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "print order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelPrintOrderRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var reason *string
		if payload.Reason != nil {
			if v := validators.SanitizeString(*payload.Reason, 500); v != "" {
				reason = &v
			}
		}

		order, err := service.Cancel(r.Context(), actor, orderID, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.AdminDTO(order))
	}
}

// ParentCreate places a new print order for the caller's story output.
func ParentCreate(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "print order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPrintOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := service.Create(r.Context(), actor, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, svc.ParentDTO(order))
	}
}

// ParentList returns the caller's own orders, newest first.
func ParentList(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "print order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := service.List(r.Context(), actor, svc.ListInput{Filter: enums.PrintOrderFilterAll, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.PageDTO(page, svc.ParentDTO))
	}
}

func ParentDetail(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(service, logg, svc.ParentDTO, func(s svc.Service) orderAction { return s.Get })
}

// ParentPay records a simulated payment.
func ParentPay(service svc.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(service, logg, svc.ParentDTO, func(s svc.Service) orderAction { return s.Pay })
}

func runAction(service svc.Service, logg *logger.Logger, view func(*models.PrintOrder) svc.PrintOrderDTO, pick func(svc.Service) orderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "print order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := pick(service)(ctx, actor, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view(order))
	}
}

func actorFromRequest(r *http.Request) (svc.Actor, error) {
	userID, role, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return svc.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return svc.Actor{UserID: userID, Role: role}, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	cursor, err := validators.QueryString(r, "cursor", 512)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}
