package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"givora.org/internal/admin"
	"givora.org/internal/audit"
	"givora.org/internal/kyc"
)

// handleAdminKYC dispatches the /admin/kyc/ subtree. Unknown actions are a
// fixed 404 regardless of credential, matching how the rest of the tree
// answers for missing resources.
func (a *API) handleAdminKYC(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/kyc/"), "/")
	switch action {
	case "report":
		a.handleKYCReport(w, r)
	case "override":
		a.handleKYCOverride(w, r)
	case "details":
		a.handleKYCDetails(w, r)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// requireAdmin verifies the request credential and returns the admin identity.
// Every failure mode is a uniform 401; the audit log carries the cause.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	ra := a.auth.ForRequest(r)
	adminID, ok := ra.Identity(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return adminID, true
}

func (a *API) handleKYCReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	adminID, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := audit.WithAdmin(r.Context(), adminID)

	q := r.URL.Query()
	docs, err := a.kyc.Report(ctx, kyc.ReportFilter{
		Status:    q.Get("status"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	})
	if err != nil {
		handleKYCError(w, r, err)
		return
	}
	if docs == nil {
		docs = []kyc.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (a *API) handleKYCOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	adminID, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := audit.WithAdmin(r.Context(), adminID)

	var req kyc.OverrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.kyc.Override(ctx, adminID, req)
	if err != nil {
		handleKYCError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

func (a *API) handleKYCDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	adminID, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := audit.WithAdmin(r.Context(), adminID)

	doc, err := a.kyc.Details(ctx, r.URL.Query().Get("id"))
	if err != nil {
		handleKYCError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func handleKYCError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, kyc.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, kyc.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, admin.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
