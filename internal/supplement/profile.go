package supplement

import (
	"errors"
	"fmt"
	"strings"
)

// Profile selects which default plan is loaded.
type Profile string

const (
	ProfileEugen     Profile = "Eugen"
	ProfileKatharina Profile = "Katharina"
)

// ErrUnknownProfile is returned by ParseProfile for names outside Profiles().
var ErrUnknownProfile = errors.New("unknown profile")

// Profiles lists the selectable profiles in display order.
func Profiles() []Profile {
	return []Profile{ProfileEugen, ProfileKatharina}
}

// ParseProfile matches a profile name case-insensitively.
func ParseProfile(name string) (Profile, error) {
	name = strings.TrimSpace(name)
	for _, p := range Profiles() {
		if strings.EqualFold(string(p), name) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}

// DefaultPlan returns a fresh copy of the hardcoded plan for the profile.
func DefaultPlan(p Profile) Plan {
	switch p {
	case ProfileEugen:
		return eugenPlan()
	case ProfileKatharina:
		return katharinaPlan()
	default:
		return Plan{}
	}
}

func eugenPlan() Plan {
	return Plan{Categories: []Category{
		{Name: CategoryPriority, Entries: []Entry{
			{Name: "Valsamtrio", Dosage: "Nach Anweisung", Note: "Blutdrucksenker. Morgens!"},
		}},
		{Name: CategoryMorning, Entries: []Entry{
			{Name: "Magnesium-Orotat", Dosage: "3 Kapseln", Note: "105 mg Mg"},
			{Name: "Vitamin D3 + K2", Dosage: "Individuell", Note: "Benötigt Fett!"},
			{Name: "Ginkgo + B-Komplex", Dosage: "1 Tablette", Note: "Kreislauf"},
		}},
		{Name: CategoryMidday, Entries: []Entry{
			{Name: "Magnesium Taurate", Dosage: "4 Kapseln", Note: "160 mg Mg"},
			{Name: "Zink Bisglycinat", Dosage: "1 Tablette", Note: "Zum Essen!"},
			{Name: "Omega-3", Dosage: "1 Kapsel", Note: "Herzschutz"},
			{Name: "Coenzym Q10", Dosage: "1 Kapsel", Note: "Zellenergie"},
		}},
		{Name: CategoryEvening, Entries: []Entry{
			{Name: "Mg Bisglycinat", Dosage: "3 Kapseln", Note: "Entspannung"},
			{Name: "Chrom 500", Dosage: "1 Tablette", Note: "Blutzucker"},
		}},
		{Name: CategoryNight, Entries: []Entry{
			{Name: "Mg Night + Melatonin", Dosage: "1 Beutel", Note: "Granulat"},
			{Name: "GABA", Dosage: "4 Kapseln", Note: "Viel Wasser"},
			{Name: "Baldrian", Dosage: "1 Dragee", Note: "Beruhigung"},
			{Name: "Mg L-Threonat", Dosage: "2 Kapseln", Note: "Gehirn"},
		}},
	}}
}

func katharinaPlan() Plan {
	return Plan{Categories: []Category{
		{Name: CategoryMorning, Entries: []Entry{
			{Name: "Multivitamin", Dosage: "1 Tablette", Note: "Basis-Versorgung"},
			{Name: "Eisen + C", Dosage: "1 Tablette", Note: "Bei Bedarf"},
		}},
		{Name: CategoryEvening, Entries: []Entry{
			{Name: "Magnesium", Dosage: "2 Kapseln", Note: "Entspannung"},
		}},
	}}
}
