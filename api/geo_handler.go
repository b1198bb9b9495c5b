package api

import (
	"net/http"

	"github.com/raushankrgupta/style-assistant/utils"
)

// GeoCountryHandler suggests the country default from the caller's IP
func (h *Handler) GeoCountryHandler(w http.ResponseWriter, r *http.Request) {
	ip := utils.ClientIP(r)
	loc, err := utils.LookupCountry(r.Context(), h.GeoURL, ip)
	if err != nil {
		utils.Log.Warnw("Geo lookup failed", "ip", ip, "error", err)
		// the client falls back to a manual pick
		utils.RespondJSON(w, http.StatusOK, map[string]string{"country": ""})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"country": loc.Country, "country_code": loc.CountryCode})
}

// CountriesHandler lists the countries offered on the details step
func (h *Handler) CountriesHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string][]string{"countries": utils.Countries})
}
