package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"propman/internal/auth"
	"propman/internal/core"
	"propman/internal/log"
)

// propertyRequest is the body of property create and update calls.
type propertyRequest struct {
	Name          string              `json:"name" validate:"required,max=200"`
	Address       string              `json:"address" validate:"max=300"`
	Status        core.PropertyStatus `json:"status" validate:"omitempty,oneof=active inactive maintenance"`
	PropertyType  string              `json:"propertyType" validate:"max=60"`
	FinancialInfo core.FinancialInfo  `json:"financialInfo"`
	Metadata      map[string]string   `json:"metadata" validate:"max=50"`
}

func (req propertyRequest) apply(p *core.Property) {
	p.Name = strings.TrimSpace(req.Name)
	p.Address = strings.TrimSpace(req.Address)
	p.PropertyType = strings.TrimSpace(req.PropertyType)
	p.FinancialInfo = req.FinancialInfo
	p.FinancialInfo.Currency = strings.ToUpper(strings.TrimSpace(p.FinancialInfo.Currency))
	p.Metadata = req.Metadata
	if req.Status != "" {
		p.Status = req.Status
	}
}

func (s *Server) decodeProperty(r *http.Request) (propertyRequest, error) {
	var req propertyRequest
	if err := DecodeJSON(r, &req); err != nil {
		return req, err
	}
	if err := s.validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePropertyQuery(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	all, err := s.store.ListProperties(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().JSON(core.FilterProperties(all, q)).Write(w)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProperty(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().JSON(p).Write(w)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeProperty(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	now := s.now().UTC()
	p := core.Property{
		ID:        uuid.NewString(),
		Status:    core.PropertyActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	req.apply(&p)
	if err := p.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.store.CreateProperty(r.Context(), p); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Property created",
		log.FieldPropertyID, p.ID,
		log.FieldOperation, log.OpCreate)
	NewJSONResponse().Status(http.StatusCreated).Header("Location", "/api/properties/"+p.ID).JSON(p).Write(w)
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeProperty(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	p, err := s.store.GetProperty(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	req.apply(&p)
	p.UpdatedAt = s.now().UTC()
	if err := p.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.store.UpdateProperty(r.Context(), p); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Property updated",
		log.FieldPropertyID, p.ID,
		log.FieldOperation, log.OpUpdate)
	NewJSONResponse().JSON(p).Write(w)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteProperty(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Property deleted", log.FieldPropertyID, id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.store.ListProviders(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filtered := providers[:0]
		for _, p := range providers {
			if strings.EqualFold(string(p.Status), status) {
				filtered = append(filtered, p)
			}
		}
		providers = filtered
	}
	if providers == nil {
		providers = []core.ServiceProvider{}
	}
	NewJSONResponse().JSON(providers).Write(w)
}

// handleGetProvider lets a service provider read only its own record.
func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if caller, _ := ProfileFromContext(r.Context()); caller.Role != core.RoleAdmin && caller.ProviderID != id {
		writeError(r.Context(), w, auth.ErrForbidden)
		return
	}
	p, err := s.store.GetProvider(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().JSON(p).Write(w)
}
