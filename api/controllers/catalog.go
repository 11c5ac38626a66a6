package controllers

import (
	"net/http"

	"github.com/angelmondragon/storyprint-backend/api/responses"
	productsvc "github.com/angelmondragon/storyprint-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
)

// PrintProducts lists the active print catalog.
func PrintProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		items, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": items})
	}
}
