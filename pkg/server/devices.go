package server

import (
	"net/http"
	"regexp"

	"github.com/chargee/sandboxd/pkg/ampere"
	"github.com/chargee/sandboxd/pkg/types"
)

// serialPattern matches gateway serial numbers, which are uppercase
// alphanumeric and at least 10 characters. Anything else in a lookup is
// treated as an address UUID.
var serialPattern = regexp.MustCompile(`^[A-Z0-9]{10,}$`)

func (s *Server) handleAddressDevices(w http.ResponseWriter, r *http.Request) {
	set := ampere.FetchDeviceSet(r.Context(), s.client, r.PathValue("addressID"))
	writeJSON(w, set)
}

func (s *Server) handleSparkyBundle(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = todayDate()
	} else if !validDate(date) {
		writeJSONError(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	bundle := ampere.FetchSparkyBundle(r.Context(), s.client, r.PathValue("serial"), date)
	writeJSON(w, bundle)
}

// handleLookup resolves a free-form admin query: a serial-shaped string
// becomes a gateway lookup, everything else an address device fan-out.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSONError(w, "q is required", http.StatusBadRequest)
		return
	}

	if serialPattern.MatchString(q) {
		details, err := s.client.SparkyDetails(ctx, q)
		if err != nil {
			writeJSONError(w, "gateway not found", upstreamStatus(err))
			return
		}
		writeJSON(w, struct {
			Kind   string              `json:"kind"`
			Sparky types.SparkyDetails `json:"sparky"`
		}{Kind: "sparky", Sparky: details})
		return
	}

	set := ampere.FetchDeviceSet(ctx, s.client, q)
	if set.Empty() && len(set.Failed) == len(types.AllDeviceKinds) {
		writeJSONError(w, "address not found", http.StatusNotFound)
		return
	}
	writeJSON(w, struct {
		Kind    string          `json:"kind"`
		Devices types.DeviceSet `json:"devices"`
	}{Kind: "address", Devices: set})
}
