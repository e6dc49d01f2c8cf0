package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Assistente: POST /v1/wizards
// ============================================================

func createWizardHandler(wizards *service.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/wizards")
		defer span.End()

		created, err := wizards.Create(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("wizard.id", created.Wizard.ID))
		writeJSON(w, http.StatusCreated, created)
	}
}

// ============================================================
// GET /v1/wizards/current
// ============================================================

func getWizardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wizard := WizardFromContext(r.Context())
		writeJSON(w, http.StatusOK, wizard.Snapshot())
	}
}

// ============================================================
// PATCH /v1/wizards/current/sections/{section}
// ============================================================

func patchSectionHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/wizards/current/sections/{section}")
		defer span.End()

		wizard := WizardFromContext(ctx)
		section := chi.URLParam(r, "section")
		span.SetAttributes(
			attribute.String("wizard.id", wizard.ID()),
			attribute.String("profile.section", section),
		)

		body, err := readBody(w, r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		patch, err := domain.DecodeSectionPatch(section, body)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := validateStruct(patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := wizard.Update(ctx, patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, wizard.Snapshot())
	}
}

// ============================================================
// POST /v1/wizards/current/{start|next|prev|restart}
// ============================================================

func wizardActionHandler(action string, logger *zap.Logger, fn func(context.Context, *service.Wizard) error) http.HandlerFunc {
	spanName := "POST /v1/wizards/current/" + action
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), spanName)
		defer span.End()

		wizard := WizardFromContext(ctx)
		span.SetAttributes(attribute.String("wizard.id", wizard.ID()))

		if err := fn(ctx, wizard); err != nil {
			span.RecordError(err)
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, wizard.Snapshot())
	}
}

// ============================================================
// POST /v1/wizards/current/goto/{step}
// ============================================================

func gotoHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wizard := WizardFromContext(r.Context())

		step, err := strconv.Atoi(chi.URLParam(r, "step"))
		if err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "step", Message: "deve ser um número"}, logger)
			return
		}
		if err := wizard.GoTo(step); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, wizard.Snapshot())
	}
}
