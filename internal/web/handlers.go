package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/StarAlexander/inventory-storage-diploma/internal/auth"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
	"github.com/StarAlexander/inventory-storage-diploma/internal/service"
	"github.com/StarAlexander/inventory-storage-diploma/internal/store"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	u, err := s.svc.Accounts.CreateUser(r.Context(), body.Username, body.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	pub, err := s.svc.Accounts.PublicKey(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "public_key": pub})
}

func (s *Server) handleCreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	wh, err := s.svc.Registry.CreateWarehouse(r.Context(), body.Name, body.Address)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wh)
}

func (s *Server) handleListWarehouses(w http.ResponseWriter, r *http.Request) {
	ws, err := s.svc.Registry.ListWarehouses(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ws))
}

func (s *Server) handleGetWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	wh, err := s.svc.Registry.GetWarehouse(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	warehouseID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string          `json:"name"`
		Type domain.ZoneType `json:"type"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	z, err := s.svc.Registry.CreateZone(r.Context(), warehouseID, body.Name, body.Type)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, z)
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	warehouseID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	zs, err := s.svc.Registry.ListZones(r.Context(), warehouseID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(zs))
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string              `json:"name"`
		Type domain.DocumentType `json:"type"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	t, err := s.svc.Registry.CreateTemplate(r.Context(), body.Name, body.Type)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	ts, err := s.svc.Registry.ListTemplates(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ts))
}

func (s *Server) handleRegisterEquipment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string `json:"name"`
		InventoryNumber string `json:"inventory_number"`
		SerialNumber    string `json:"serial_number"`
		LocationID      *int64 `json:"location_id"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	e, err := s.svc.Registry.RegisterEquipment(r.Context(), body.Name, body.InventoryNumber, body.SerialNumber, body.LocationID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	e, err := s.svc.Registry.GetEquipment(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleCreateTransaction records a transaction on behalf of the
// authenticated user; a user_id in the body is ignored.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req service.TransactionRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, _ := auth.FromContext(r.Context())
	req.UserID = p.UserID

	res, err := s.svc.Transactions.Process(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		f   store.LedgerFilter
		err error
	)
	if f.WarehouseID, err = optionalInt(q.Get("warehouse_id")); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid warehouse_id")
		return
	}
	if f.EquipmentID, err = optionalInt(q.Get("equipment_id")); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid equipment_id")
		return
	}
	if f.Since, err = optionalTime(q.Get("since")); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid since, want RFC 3339")
		return
	}
	if f.Until, err = optionalTime(q.Get("until")); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid until, want RFC 3339")
		return
	}
	f.Operation = domain.Operation(q.Get("operation"))
	if raw := q.Get("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil || f.Limit < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	entries, err := s.svc.Transactions.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "warehouse_id is required")
		return
	}
	docs, err := s.svc.Documents.ListByWarehouse(r.Context(), warehouseID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(docs))
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var after int64
	if raw := q.Get("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid after")
			return
		}
		after = v
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}

	docs, err := s.svc.Documents.ListPendingSignature(r.Context(), after, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := struct {
		Documents []*domain.Document `json:"documents"`
		NextAfter *int64             `json:"next_after,omitempty"`
	}{Documents: nonNil(docs)}
	if len(docs) > 0 {
		last := docs[len(docs)-1].ID
		resp.NextAfter = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.svc.Documents.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*domain.Document
		State domain.DocumentState `json:"state"`
	}{doc, doc.State()})
}

func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Documents.RequestMaterialization(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"document_id": id, "status": "queued"})
}

func (s *Server) handleGetPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	rc, err := s.svc.Documents.Artifact(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			s.logger.Error("failed to close artifact", "document_id", id, "error", err)
		}
	}()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="document-%d.pdf"`, id))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("failed to stream artifact", "document_id", id, "error", err)
	}
}

// handleSign signs the document as the authenticated user.
func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	p, _ := auth.FromContext(r.Context())

	doc, err := s.svc.Documents.Sign(r.Context(), id, p.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleVerifySignature(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DocumentID int64  `json:"document_id"`
		PublicKey  string `json:"public_key"`
		Signature  string `json:"signature"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.DocumentID <= 0 || body.PublicKey == "" || body.Signature == "" {
		writeError(w, r, http.StatusBadRequest, "document_id, public_key and signature are required")
		return
	}

	res, err := s.svc.Documents.Verify(r.Context(), body.DocumentID, body.PublicKey, body.Signature)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decode reads a JSON request body into dst, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(r)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func optionalInt(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
