package domain

// DiscoveryRequest is the immutable input payload for one discovery session.
// All four fields are required.
type DiscoveryRequest struct {
	CompanyName        string `json:"company_name"`
	CompanyDescription string `json:"company_description"`
	Industry           string `json:"industry"`
	Goal               string `json:"goal"`
}
