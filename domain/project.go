package domain

// ProjectConfig holds the OAuth client credentials and metadata for one
// registered project. Built once at startup from configuration and treated
// as immutable afterwards.
type ProjectConfig struct {
	Key          string `json:"key"`
	DisplayName  string `json:"name"`
	Description  string `json:"description,omitempty"`
	ClientID     string `json:"-"`
	ClientSecret string `json:"-"`
	RedirectURL  string `json:"redirect_url"`
	Icon         string `json:"icon,omitempty"`
}

// Complete reports whether the project carries everything needed to run an
// authorization-code exchange. Incomplete projects are excluded from
// listings and reject lookups.
func (p ProjectConfig) Complete() bool {
	return p.ClientID != "" && p.ClientSecret != "" && p.RedirectURL != ""
}

// MissingFields returns the names of the credential fields that are empty.
func (p ProjectConfig) MissingFields() []string {
	var missing []string
	if p.ClientID == "" {
		missing = append(missing, "clientId")
	}
	if p.ClientSecret == "" {
		missing = append(missing, "clientSecret")
	}
	if p.RedirectURL == "" {
		missing = append(missing, "redirectUrl")
	}
	return missing
}
