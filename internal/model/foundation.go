package model

// Foundation is a foundation registered in the database whose members and
// projects are kept in sync with its landscape.
type Foundation struct {
	Name         string `json:"name"`
	LandscapeURL string `json:"landscape_url"`
}

// Member is a foundation member as stored in the database, keyed by
// (foundation, name).
type Member struct {
	Foundation string `json:"foundation"`
	Name       string `json:"name"`
	Level      string `json:"level"`
	LogoURL    string `json:"logo_url"`
}

// Project is a foundation project as stored in the database, keyed by
// (foundation, name).
type Project struct {
	Foundation string `json:"foundation"`
	Name       string `json:"name"`
	Maturity   string `json:"maturity"`
	LogoURL    string `json:"logo_url"`
}
