package config

import (
	"fmt"
	"sort"
)

// Pairing ties a rookie to the reference driver whose car they drove.
type Pairing struct {
	Reference string `json:"reference"`
	Rookie    string `json:"rookie"`
}

// Roster lists the pairings to compare plus display names and teams.
type Roster struct {
	Pairings []Pairing         `json:"pairings"`
	Names    map[string]string `json:"names,omitempty"`
	Teams    map[string]string `json:"teams,omitempty"`
}

// DefaultRoster returns the 2025 Abu Dhabi rookie FP1 line-up.
func DefaultRoster() Roster {
	return Roster{
		Pairings: []Pairing{
			{Reference: "PIA", Rookie: "OWA"},
			{Reference: "TSU", Rookie: "LIN"},
			{Reference: "HAM", Rookie: "ALE"},
			{Reference: "ALB", Rookie: "BRO"},
			{Reference: "LAW", Rookie: "IWA"},
			{Reference: "ALO", Rookie: "SHI"},
			{Reference: "STR", Rookie: "CRA"},
			{Reference: "OCO", Rookie: "HIR"},
			{Reference: "GAS", Rookie: "ARO"},
		},
		Names: map[string]string{
			"PIA": "Oscar Piastri",
			"TSU": "Yuki Tsunoda",
			"HAM": "Lewis Hamilton",
			"ALB": "Alex Albon",
			"LAW": "Liam Lawson",
			"ALO": "Fernando Alonso",
			"STR": "Lance Stroll",
			"OCO": "Esteban Ocon",
			"GAS": "Pierre Gasly",
			"OWA": "Pato O'Ward",
			"LIN": "Arvid Lindblad",
			"ALE": "Arthur Leclerc",
			"BRO": "Luke Browning",
			"IWA": "Ayumu Iwasa",
			"SHI": "Cian Shields",
			"CRA": "Jak Crawford",
			"HIR": "Ryo Hirakawa",
			"ARO": "Paul Aron",
			"VER": "Max Verstappen",
			"NOR": "Lando Norris",
			"LEC": "Charles Leclerc",
			"SAI": "Carlos Sainz",
			"RUS": "George Russell",
			"ANT": "Kimi Antonelli",
			"HUL": "Nico Hulkenberg",
			"BOR": "Gabriel Bortoleto",
			"HAD": "Isack Hadjar",
			"BEA": "Oliver Bearman",
			"COL": "Franco Colapinto",
		},
		Teams: map[string]string{
			"VER": "Red Bull", "LAW": "Red Bull",
			"NOR": "McLaren", "PIA": "McLaren", "OWA": "McLaren",
			"LEC": "Ferrari", "HAM": "Ferrari", "ALE": "Ferrari",
			"RUS": "Mercedes", "ANT": "Mercedes",
			"ALO": "Aston Martin", "STR": "Aston Martin", "SHI": "Aston Martin", "CRA": "Aston Martin",
			"GAS": "Alpine", "ARO": "Alpine",
			"ALB": "Williams", "SAI": "Williams", "BRO": "Williams", "COL": "Williams",
			"TSU": "RB", "HAD": "RB", "LIN": "RB", "IWA": "RB",
			"HUL": "Sauber", "BOR": "Sauber",
			"OCO": "Haas", "BEA": "Haas", "HIR": "Haas",
		},
	}
}

// Validate rejects empty codes and drivers that appear in more than one
// pairing.
func (r *Roster) Validate() error {
	seen := make(map[string]bool)
	for i, p := range r.Pairings {
		if p.Reference == "" || p.Rookie == "" {
			return fmt.Errorf("pairing %d has an empty driver code", i)
		}
		if p.Reference == p.Rookie {
			return fmt.Errorf("pairing %d pairs %s with itself", i, p.Rookie)
		}
		for _, code := range []string{p.Reference, p.Rookie} {
			if seen[code] {
				return fmt.Errorf("driver %s appears in more than one pairing", code)
			}
			seen[code] = true
		}
	}
	return nil
}

// Name returns the display name for code, or code itself.
func (r Roster) Name(code string) string {
	if n, ok := r.Names[code]; ok {
		return n
	}
	return code
}

// Team returns the team for code, or "Unknown".
func (r Roster) Team(code string) string {
	if t, ok := r.Teams[code]; ok {
		return t
	}
	return "Unknown"
}

// IsRookie reports whether code is the rookie of any pairing.
func (r Roster) IsRookie(code string) bool {
	for _, p := range r.Pairings {
		if p.Rookie == code {
			return true
		}
	}
	return false
}

// Rookies returns the rookie codes in pairing order.
func (r Roster) Rookies() []string {
	out := make([]string, len(r.Pairings))
	for i, p := range r.Pairings {
		out[i] = p.Rookie
	}
	return out
}

// Drivers returns every paired driver code, sorted.
func (r Roster) Drivers() []string {
	out := make([]string, 0, 2*len(r.Pairings))
	for _, p := range r.Pairings {
		out = append(out, p.Reference, p.Rookie)
	}
	sort.Strings(out)
	return out
}
