package models

// PriceSegment is the closed set of price answers.
type PriceSegment string

const (
	PriceBudget     PriceSegment = "budget"
	PriceMid        PriceSegment = "mid"
	PricePremiumMid PriceSegment = "premium_mid"
	PricePremium    PriceSegment = "premium"
	PriceDiscounts  PriceSegment = "discounts"
)

// DefaultPriceSegment is used when typed text matches no price option.
const DefaultPriceSegment = PriceMid

// Occasion is the closed set of occasion answers.
type Occasion string

const (
	OccasionCasual Occasion = "casual"
	OccasionOffice Occasion = "office"
	OccasionParty  Occasion = "party"
	OccasionFormal Occasion = "formal"
	OccasionAny    Occasion = "any"
)

// PriceOption describes one price answer. Max of zero means open-ended.
type PriceOption struct {
	Value PriceSegment
	Label string
	Min   int64
	Max   int64
}

type OccasionOption struct {
	Value Occasion
	Label string
}

// PriceOptions lists price answers in display order.
var PriceOptions = []PriceOption{
	{Value: PriceBudget, Label: "До 10 000 ₽", Min: 1000, Max: 10000},
	{Value: PriceMid, Label: "10 000 – 30 000 ₽", Min: 10000, Max: 30000},
	{Value: PricePremiumMid, Label: "30 000 – 50 000 ₽", Min: 30000, Max: 50000},
	{Value: PricePremium, Label: "Премиум 50 000+ ₽", Min: 50000},
	{Value: PriceDiscounts, Label: "Искать скидки", Min: 1000, Max: 30000},
}

// OccasionOptions lists occasion answers in display order.
var OccasionOptions = []OccasionOption{
	{Value: OccasionCasual, Label: "Повседневная одежда"},
	{Value: OccasionOffice, Label: "Офис / деловой стиль"},
	{Value: OccasionParty, Label: "Вечеринка / выход"},
	{Value: OccasionFormal, Label: "Торжество / свадьба"},
	{Value: OccasionAny, Label: "Не важно"},
}

// LookupPrice finds the option whose label or value equals s exactly.
func LookupPrice(s string) (PriceOption, bool) {
	for _, o := range PriceOptions {
		if o.Label == s || string(o.Value) == s {
			return o, true
		}
	}
	return PriceOption{}, false
}

// LookupOccasion finds the option whose label or value equals s exactly.
func LookupOccasion(s string) (OccasionOption, bool) {
	for _, o := range OccasionOptions {
		if o.Label == s || string(o.Value) == s {
			return o, true
		}
	}
	return OccasionOption{}, false
}

// Filters narrows a search. Occasion is only ever set after PriceSegment.
type Filters struct {
	PriceSegment PriceSegment `json:"priceSegment,omitempty"`
	Occasion     Occasion     `json:"occasion,omitempty"`
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.PriceSegment == "" && f.Occasion == ""
}

// PriceRange returns the range of the selected segment, if any.
func (f Filters) PriceRange() (PriceOption, bool) {
	if f.PriceSegment == "" {
		return PriceOption{}, false
	}
	return LookupPrice(string(f.PriceSegment))
}
