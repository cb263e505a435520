// models/geo.go
package models

// State is an administrative region from the reference-data API.
type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// City is a city from the reference-data API.
type City struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GeocodeResult is what the geocoder returns for a forward or reverse lookup.
type GeocodeResult struct {
	Matched          bool        `json:"matched"`
	FormattedAddress string      `json:"formattedAddress,omitempty"`
	Coordinates      Coordinates `json:"coordinates"`
	State            string      `json:"state,omitempty"` // administrative_area_level_1
	City             string      `json:"city,omitempty"`  // locality
}

// GeoResolution is the reconciled address, coordinates and state/city selection.
type GeoResolution struct {
	FormattedAddress string       `json:"formattedAddress,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	StateCode        string       `json:"stateCode,omitempty"`
	StateName        string       `json:"stateName,omitempty"`
	CityID           int          `json:"cityId,omitempty"`
	CityName         string       `json:"cityName,omitempty"`
	Warnings         []string     `json:"warnings,omitempty"`
}

// Patch converts the resolution into a step-two form patch. An unmatched
// state keeps the current state and city selection.
func (g GeoResolution) Patch() FormPatch {
	var p FormPatch
	if g.FormattedAddress != "" {
		p.Address = StringPtr(g.FormattedAddress)
	}
	if g.Coordinates != nil {
		c := *g.Coordinates
		p.Coordinates = &c
	}
	if g.StateCode != "" {
		// The city list belongs to the state, so a new state always
		// replaces the city, with an empty one when it did not match.
		p.StateCode = StringPtr(g.StateCode)
		p.StateName = StringPtr(g.StateName)
		p.CityID = IntPtr(g.CityID)
		p.CityName = StringPtr(g.CityName)
	}
	return p
}
