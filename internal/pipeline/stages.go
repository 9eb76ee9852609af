// Package pipeline owns the display model of the offline extraction pipeline.
// The pipeline itself runs outside this service; stages are fixed here as an
// ordered catalog, and the tracker ingests the status reports the pipeline
// posts after each stage transition.
package pipeline

// StageDescriptor describes one stage of the extraction pipeline for planning
// and display.
type StageDescriptor struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

var stageCatalog = []StageDescriptor{
	{Key: "ingest_source", Label: "Ingest source", Description: "Fetch the protocol source document into object storage.", Order: 1},
	{Key: "ocr_text", Label: "OCR / text layer", Description: "Extract the text layer from the source PDF.", Order: 2},
	{Key: "segment_sections", Label: "Segment sections", Description: "Split the protocol text into candidate sections.", Order: 3},
	{Key: "classify_sections", Label: "Classify sections", Description: "Label each section with its protocol role.", Order: 4},
	{Key: "extract_identity", Label: "Extract study identity", Description: "Pull study title, identifiers, sponsor and phase.", Order: 5},
	{Key: "extract_design", Label: "Extract study design", Description: "Extract arms, epochs, elements and interventions.", Order: 6},
	{Key: "extract_eligibility", Label: "Extract eligibility", Description: "Extract inclusion and exclusion criteria text.", Order: 7},
	{Key: "atomize_criteria", Label: "Atomize criteria", Description: "Split criteria into atomic, individually reviewable statements.", Order: 8},
	{Key: "derive_qeb", Label: "Derive queryable blocks", Description: "Group atomic criteria into queryable eligibility blocks.", Order: 9},
	{Key: "assemble_usdm", Label: "Assemble USDM", Description: "Assemble the extracted pieces into a USDM document.", Order: 10},
	{Key: "validate_usdm", Label: "Validate USDM", Description: "Check referential integrity of the assembled document.", Order: 11},
	{Key: "publish_review", Label: "Publish for review", Description: "Write the document to the store and open it for review.", Order: 12},
}

// Stages returns the ordered stage catalog. The slice is a copy; callers may
// not mutate the catalog.
func Stages() []StageDescriptor {
	out := make([]StageDescriptor, len(stageCatalog))
	copy(out, stageCatalog)
	return out
}

// StageByKey looks a stage up by its key.
func StageByKey(key string) (StageDescriptor, bool) {
	for _, s := range stageCatalog {
		if s.Key == key {
			return s, true
		}
	}
	return StageDescriptor{}, false
}
