package domain

// CatalogEntry is one row of the gift spreadsheet.
type CatalogEntry struct {
	Brand        string `json:"brand"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	AgeBracket   string `json:"age_bracket"`
	PurchaseLink string `json:"purchase_link,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

// AnalysisResult is the classification of an uploaded photo.
type AnalysisResult struct {
	IsPerson     bool   `json:"is_person"`
	Description  string `json:"desc"`
	EstimatedAge int    `json:"age"`
}

// RecommendationResult is the model's pick among the candidates.
type RecommendationResult struct {
	SelectedProductName string `json:"product_name"`
	Reason              string `json:"reason"`
	HumorLine           string `json:"humor"`
}
