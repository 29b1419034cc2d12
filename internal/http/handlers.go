package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/auth"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/dispatch"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/engine"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/location"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/models"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/store"
)

type Server struct {
	Engine   *engine.Engine
	Auth     *auth.Checker
	Resolver *location.Resolver

	WSReg    *dispatch.WSRegistry
	sessions *sessionRegistry
	logger   *slog.Logger
	mux      *mux.Router
}

func NewServer(eng *engine.Engine, checker *auth.Checker, resolver *location.Resolver, wsreg *dispatch.WSRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Engine:   eng,
		Auth:     checker,
		Resolver: resolver,
		WSReg:    wsreg,
		sessions: newSessionRegistry(),
		logger:   logger,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/login/employee", s.handleEmployeeLogin).Methods("POST")
	s.mux.HandleFunc("/api/v1/login/driver", s.handleDriverLogin).Methods("POST")
	s.mux.HandleFunc("/api/v1/logout", s.handleLogout).Methods("POST")

	s.mux.HandleFunc("/api/v1/drivers", s.handleListDrivers).Methods("GET")
	s.mux.HandleFunc("/api/v1/drivers/{id}", s.handleGetDriver).Methods("GET")
	s.mux.HandleFunc("/api/v1/drivers/{id}/requests", s.handleSendRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/drivers/{id}/requests/{employee}/accept", s.handleAcceptRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/drivers/{id}/requests/{employee}/deny", s.handleDenyRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/drivers/{id}/passengers/{name}", s.handleRemovePassenger).Methods("DELETE")
	s.mux.HandleFunc("/api/v1/drivers/{id}/status", s.handleUpdateStatus).Methods("PUT")
	s.mux.HandleFunc("/api/v1/requests/cancel", s.handleCancelRequest).Methods("POST")

	s.mux.HandleFunc("/api/v1/employees", s.handleListEmployees).Methods("GET")
	s.mux.HandleFunc("/api/v1/employees/{id}", s.handleGetEmployee).Methods("GET")

	s.mux.HandleFunc("/api/v1/location/share", s.handleShareLocation).Methods("POST")
	s.mux.HandleFunc("/api/v1/location/resolve", s.handleResolveLink).Methods("POST")
	s.mux.HandleFunc("/api/v1/location/coordinates", s.handleGenerateCoordinates).Methods("POST")
	s.mux.HandleFunc("/api/v1/location/coordinates", s.handleLastCoordinates).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/drivers/{id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type loginRequest struct {
	ID       int    `json:"id"`
	Password string `json:"password"`
}

func (s *Server) handleEmployeeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	emp, err := s.Auth.CheckEmployee(r.Context(), req.ID, req.Password)
	if err != nil {
		s.loginError(w, err)
		return
	}
	sess := s.sessions.create(RoleEmployee, emp.ID, emp.Name)
	writeJSON(w, 200, map[string]any{"token": sess.Token, "employee": emp})
}

func (s *Server) handleDriverLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	d, err := s.Auth.CheckDriver(r.Context(), req.ID, req.Password)
	if err != nil {
		s.loginError(w, err)
		return
	}
	sess := s.sessions.create(RoleDriver, d.ID, d.Name)
	writeJSON(w, 200, map[string]any{"token": sess.Token, "driver": d})
}

func (s *Server) loginError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrLoginFailed) {
		http.Error(w, "user not found, try valid credentials", 401)
		return
	}
	http.Error(w, "login unavailable", 502)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.drop(r.Header.Get("X-Session-Token"))
	w.WriteHeader(204)
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok || sess.Role != RoleEmployee {
		http.Error(w, "employee session required", 401)
		return
	}
	drivers, pending, err := s.Engine.ListDriversFor(r.Context(), sess.Name)
	if err != nil {
		http.Error(w, "listing unavailable", 502)
		return
	}
	writeJSON(w, 200, map[string]any{"drivers": drivers, "has_pending_request": pending})
}

func (s *Server) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionFrom(r); !ok {
		http.Error(w, "session required", 401)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "bad driver id", 400)
		return
	}
	d, err := s.Engine.GetDriver(r.Context(), id)
	if err != nil {
		s.notFoundOr502(w, err)
		return
	}
	writeJSON(w, 200, d)
}

func (s *Server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok || sess.Role != RoleEmployee {
		http.Error(w, "employee session required", 401)
		return
	}
	driverID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "bad driver id", 400)
		return
	}
	outcome, err := s.Engine.SendRideRequest(r.Context(), sess.ID, driverID)
	if err != nil {
		s.engineError(w, err)
		return
	}
	writeOutcome(w, outcome)
}

func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	_, driverID, employee, ok := s.driverOp(w, r)
	if !ok {
		return
	}
	d, outcome, err := s.Engine.AcceptRideRequest(r.Context(), driverID, employee)
	if err != nil {
		s.engineError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"outcome": outcomeString(outcome), "driver": d})
}

func (s *Server) handleDenyRequest(w http.ResponseWriter, r *http.Request) {
	_, driverID, employee, ok := s.driverOp(w, r)
	if !ok {
		return
	}
	outcome, err := s.Engine.DenyRideRequest(r.Context(), driverID, employee)
	if err != nil {
		s.engineError(w, err)
		return
	}
	writeOutcome(w, outcome)
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok || sess.Role != RoleEmployee {
		http.Error(w, "employee session required", 401)
		return
	}
	d, outcome, err := s.Engine.CancelRideRequest(r.Context(), sess.Name)
	if err != nil {
		s.engineError(w, err)
		return
	}
	resp := map[string]any{"outcome": outcomeString(outcome)}
	if d != nil {
		resp["driver_name"] = d.Name
	}
	writeJSON(w, 200, resp)
}

func (s *Server) handleRemovePassenger(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok || sess.Role != RoleDriver {
		http.Error(w, "driver session required", 401)
		return
	}
	driverID, err := pathID(r, "id")
	if err != nil || driverID != sess.ID {
		http.Error(w, "bad driver id", 400)
		return
	}
	name := mux.Vars(r)["name"]
	outcome, err := s.Engine.RemovePassenger(r.Context(), driverID, name)
	if err != nil {
		s.engineError(w, err)
		return
	}
	writeOutcome(w, outcome)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok || sess.Role != RoleDriver {
		http.Error(w, "driver session required", 401)
		return
	}
	driverID, err := pathID(r, "id")
	if err != nil || driverID != sess.ID {
		http.Error(w, "bad driver id", 400)
		return
	}
	var req struct {
		Status models.DriverStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if err := s.Engine.UpdateDriverStatus(r.Context(), driverID, req.Status); err != nil {
		s.engineError(w, err)
		return
	}
	w.WriteHeader(204)
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok || sess.Role != RoleDriver {
		http.Error(w, "driver session required", 401)
		return
	}
	emps, err := s.Engine.ListEmployees(r.Context())
	if err != nil {
		http.Error(w, "listing unavailable", 502)
		return
	}
	writeJSON(w, 200, map[string]any{"employees": emps})
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionFrom(r); !ok {
		http.Error(w, "session required", 401)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "bad employee id", 400)
		return
	}
	e, err := s.Engine.GetEmployee(r.Context(), id)
	if err != nil {
		s.notFoundOr502(w, err)
		return
	}
	writeJSON(w, 200, e)
}

type linkRequest struct {
	Link string `json:"link"`
}

// handleShareLocation resolves the submitted link and stores the result on
// the caller's own record. A transport failure leaves the record untouched.
func (s *Server) handleShareLocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok {
		http.Error(w, "session required", 401)
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if req.Link == "" {
		http.Error(w, "enter a valid location link", 400)
		return
	}
	resolved, err := s.Resolver.Resolve(r.Context(), req.Link)
	if err != nil {
		http.Error(w, "could not expand link", 502)
		return
	}
	table := store.TableEmployees
	if sess.Role == RoleDriver {
		table = store.TableDrivers
	}
	if err := s.Engine.UpdateMapLocation(r.Context(), table, sess.ID, resolved); err != nil {
		http.Error(w, "could not save location", 502)
		return
	}
	writeJSON(w, 200, map[string]any{"map_location": resolved})
}

// handleResolveLink backs the map view's submit action: resolve only, no
// persistence. Transport failures degrade to the fallback URL on purpose.
func (s *Server) handleResolveLink(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionFrom(r); !ok {
		http.Error(w, "session required", 401)
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	resolved, _ := s.Resolver.Resolve(r.Context(), req.Link)
	writeJSON(w, 200, map[string]any{"url": resolved})
}

func (s *Server) handleGenerateCoordinates(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok {
		http.Error(w, "session required", 401)
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	coords, ok := sess.Loc.Generate(req.Link)
	if !ok {
		// Leave any previously generated pair in place.
		w.WriteHeader(204)
		return
	}
	writeJSON(w, 200, map[string]any{"coordinates": coords})
}

func (s *Server) handleLastCoordinates(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFrom(r)
	if !ok {
		http.Error(w, "session required", 401)
		return
	}
	coords, has := sess.Loc.Coordinates()
	if !has {
		w.WriteHeader(204)
		return
	}
	writeJSON(w, 200, map[string]any{"coordinates": coords})
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.WSReg == nil {
		http.Error(w, "ws not enabled", 404)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "bad driver id", 400)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", 400)
		return
	}
	s.WSReg.Add(id, conn)
}

// driverOp authorizes a driver-session operation on the driver's own record
// and extracts the path parameters shared by accept/deny.
func (s *Server) driverOp(w http.ResponseWriter, r *http.Request) (*session, int, string, bool) {
	sess, ok := s.sessionFrom(r)
	if !ok || sess.Role != RoleDriver {
		http.Error(w, "driver session required", 401)
		return nil, 0, "", false
	}
	driverID, err := pathID(r, "id")
	if err != nil || driverID != sess.ID {
		http.Error(w, "bad driver id", 400)
		return nil, 0, "", false
	}
	employee := mux.Vars(r)["employee"]
	if employee == "" {
		http.Error(w, "bad employee name", 400)
		return nil, 0, "", false
	}
	return sess, driverID, employee, true
}

func (s *Server) engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		http.Error(w, "validation failed", 422)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", 404)
	default:
		s.logger.Error("engine operation failed", "error", err)
		http.Error(w, "operation failed", 502)
	}
}

func (s *Server) notFoundOr502(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", 404)
		return
	}
	http.Error(w, "lookup failed", 502)
}

func pathID(r *http.Request, key string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[key])
}

func outcomeString(o engine.Outcome) string {
	if o == engine.Applied {
		return "applied"
	}
	return "noop"
}

func writeOutcome(w http.ResponseWriter, o engine.Outcome) {
	writeJSON(w, 200, map[string]any{"outcome": outcomeString(o)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
