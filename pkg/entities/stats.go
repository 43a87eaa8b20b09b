package entities

// Stats are the all-time counters of a guild.
type Stats struct {
	Opened int `json:"opened" bson:"opened"`
	Closed int `json:"closed" bson:"closed"`

	// Claims and ClaimSeconds accumulate the time from open to first claim.
	Claims       int     `json:"claims" bson:"claims"`
	ClaimSeconds float64 `json:"claim_seconds" bson:"claim_seconds"`

	// ClosesTimed and CloseSeconds accumulate the time from open to close.
	ClosesTimed  int     `json:"closes_timed" bson:"closes_timed"`
	CloseSeconds float64 `json:"close_seconds" bson:"close_seconds"`

	ByPanel map[string]*PanelStats `json:"by_panel" bson:"by_panel"`
	ByStaff map[string]*StaffStats `json:"by_staff" bson:"by_staff"`
}

// PanelStats are per-panel counters.
type PanelStats struct {
	Opened int `json:"opened" bson:"opened"`
	Closed int `json:"closed" bson:"closed"`
}

// StaffStats are per-staff counters.
type StaffStats struct {
	Claims int `json:"claims" bson:"claims"`
	Closes int `json:"closes" bson:"closes"`
}

func (s *Stats) applyDefaults() {
	if s.ByPanel == nil {
		s.ByPanel = make(map[string]*PanelStats)
	}
	if s.ByStaff == nil {
		s.ByStaff = make(map[string]*StaffStats)
	}
}

// Panel returns the counters for a panel, creating them if needed.
func (s *Stats) Panel(name string) *PanelStats {
	s.applyDefaults()
	if s.ByPanel[name] == nil {
		s.ByPanel[name] = new(PanelStats)
	}
	return s.ByPanel[name]
}

// Staff returns the counters for a staff member, creating them if needed.
func (s *Stats) Staff(id string) *StaffStats {
	s.applyDefaults()
	if s.ByStaff[id] == nil {
		s.ByStaff[id] = new(StaffStats)
	}
	return s.ByStaff[id]
}
