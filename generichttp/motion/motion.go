// Package motion provides an HTTP interface to motion controllers
package motion

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/motionlab/stepmotion/generichttp"
)

// Controller is a multi-axis motion controller addressable by axis name
type Controller interface {
	// GetPos gets the current position of an axis in degrees
	GetPos(axis string) (float64, error)

	// MoveAbs moves an axis to an absolute position in degrees
	MoveAbs(axis string, pos float64) error

	// MoveRel moves an axis a relative amount in degrees
	MoveRel(axis string, delta float64) error

	// Stop abandons any in-progress move on an axis
	Stop(axis string) error

	// Reset clears a latched fault on an axis
	Reset(axis string) error

	// GetState returns the lifecycle state of an axis
	GetState(axis string) (string, error)

	// AtLimit reports whether an axis sits on a soft limit
	AtLimit(axis string) (bool, error)

	// SetOrigin zeroes the position of an axis
	SetOrigin(axis string) error

	// RunTrajectory executes a registered trajectory by name
	RunTrajectory(name string) error

	// Trajectories lists the trajectory names registered for an axis
	Trajectories(axis string) ([]string, error)
}

// HTTPMotion wraps a Controller in a route table
type HTTPMotion struct {
	Controller

	RouteTable generichttp.RouteTable
}

// NewHTTPMotion binds the controller's functionality into a route table
func NewHTTPMotion(c Controller) HTTPMotion {
	h := HTTPMotion{Controller: c}
	rt := generichttp.RouteTable{}
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/pos"}] = h.getPos
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/pos"}] = h.setPos
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/stop"}] = h.stop
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/reset"}] = h.reset
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/origin"}] = h.setOrigin
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/state"}] = h.getState
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/limit"}] = h.atLimit
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/trajectory"}] = h.trajectories
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/trajectory/{name}/run"}] = h.runTrajectory
	h.RouteTable = rt
	return h
}

// RT yields the route table for binding onto a router
func (h HTTPMotion) RT() generichttp.RouteTable {
	return h.RouteTable
}

func (h HTTPMotion) getPos(w http.ResponseWriter, r *http.Request) {
	axis := chi.URLParam(r, "axis")
	generichttp.GetFloat(func() (float64, error) {
		return h.GetPos(axis)
	})(w, r)
}

// setPos triggers an absolute or relative move based on the relative
// query parameter
func (h HTTPMotion) setPos(w http.ResponseWriter, r *http.Request) {
	axis := chi.URLParam(r, "axis")
	relative := r.URL.Query().Get("relative")
	if relative == "" {
		relative = "false"
	}
	rel, err := strconv.ParseBool(relative)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	generichttp.SetFloat(func(f float64) error {
		if rel {
			return h.MoveRel(axis, f)
		}
		return h.MoveAbs(axis, f)
	})(w, r)
}

func (h HTTPMotion) stop(w http.ResponseWriter, r *http.Request) {
	if err := h.Stop(chi.URLParam(r, "axis")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPMotion) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Reset(chi.URLParam(r, "axis")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPMotion) setOrigin(w http.ResponseWriter, r *http.Request) {
	if err := h.SetOrigin(chi.URLParam(r, "axis")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPMotion) getState(w http.ResponseWriter, r *http.Request) {
	axis := chi.URLParam(r, "axis")
	generichttp.GetString(func() (string, error) {
		return h.GetState(axis)
	})(w, r)
}

func (h HTTPMotion) atLimit(w http.ResponseWriter, r *http.Request) {
	axis := chi.URLParam(r, "axis")
	generichttp.GetBool(func() (bool, error) {
		return h.AtLimit(axis)
	})(w, r)
}

func (h HTTPMotion) trajectories(w http.ResponseWriter, r *http.Request) {
	names, err := h.Trajectories(chi.URLParam(r, "axis"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(names); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h HTTPMotion) runTrajectory(w http.ResponseWriter, r *http.Request) {
	if err := h.RunTrajectory(chi.URLParam(r, "name")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
