package model

// Intent is the structured place-search intent extracted from one utterance.
// It lives for a single request and is never cached.
type Intent struct {
	Category string `json:"category"`
	Location string `json:"location"`
}

// Categories the intent extractor instructs the model to choose from. Values
// outside this list are not rejected here; the place resolver falls back to a
// restaurant-type search for unknown categories.
var PlaceCategories = []string{
	"restaurant", "hospital", "cafe", "hotel", "museum",
	"school", "supermarket", "pharmacy", "gym", "park",
}

// Place is a minimal nearby-search result. Upstream carries coordinates and
// tags, but only the display name is propagated to the user.
type Place struct {
	Name string `json:"name"`
}
