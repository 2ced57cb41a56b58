package models

// MTicker is one entry of the company catalog offered by the dashboard.
type MTicker struct {
	Company string `json:"company" yaml:"company"`
	Ticker  string `json:"ticker" yaml:"ticker"`
}
