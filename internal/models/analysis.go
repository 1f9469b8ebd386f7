package models

import "encoding/json"

// Statistics are the text counts reported for a file or blob.
type Statistics struct {
	Paragraphs    int `json:"paragraphs"`
	Words         int `json:"words"`
	Chars         int `json:"chars"`
	CharsNoSpaces int `json:"charsNoSpaces"`
}

// ComparisonResult is computed on demand and never persisted.
type ComparisonResult struct {
	Identical  bool    `json:"identical" bson:"identical"`
	Similarity float64 `json:"jaccard_similarity" bson:"similarity"`
}

type AnalyzeRequest struct {
	FileID string `json:"file_id" binding:"required"`
}

// AnalyzeResult carries either DuplicateOf or the statistics of FileID.
type AnalyzeResult struct {
	DuplicateOf string
	FileID      string
	Stats       Statistics
}

type analyzeWire struct {
	DuplicateOf string `json:"duplicate_of,omitempty"`
	FileID      string `json:"file_id,omitempty"`
	Paragraphs  *int   `json:"paragraphs,omitempty"`
	Words       *int   `json:"words,omitempty"`
	Chars       *int   `json:"chars,omitempty"`
}

// MarshalJSON writes {"duplicate_of"} for duplicates and the counts otherwise.
func (r AnalyzeResult) MarshalJSON() ([]byte, error) {
	if r.DuplicateOf != "" {
		return json.Marshal(analyzeWire{DuplicateOf: r.DuplicateOf})
	}
	return json.Marshal(analyzeWire{
		FileID:     r.FileID,
		Paragraphs: &r.Stats.Paragraphs,
		Words:      &r.Stats.Words,
		Chars:      &r.Stats.Chars,
	})
}

func (r *AnalyzeResult) UnmarshalJSON(data []byte) error {
	var w analyzeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = AnalyzeResult{DuplicateOf: w.DuplicateOf, FileID: w.FileID}
	if w.Paragraphs != nil {
		r.Stats.Paragraphs = *w.Paragraphs
	}
	if w.Words != nil {
		r.Stats.Words = *w.Words
	}
	if w.Chars != nil {
		r.Stats.Chars = *w.Chars
	}
	return nil
}

type StatsResponse struct {
	FileID string `json:"file_id"`
	Statistics
}

type CompareRequest struct {
	FileID      string `json:"file_id" binding:"required"`
	OtherFileID string `json:"other_file_id" binding:"required"`
}

// CompareTextRequest uses pointers so a missing field is distinguishable from "".
type CompareTextRequest struct {
	TextA *string `json:"text_a"`
	TextB *string `json:"text_b"`
}

type WordCloud struct {
	FileID       string `json:"file_id"`
	WordCloudURL string `json:"word_cloud_url"`
}

// GatewayUpload is the gateway's combined store-and-analyze answer.
type GatewayUpload struct {
	DuplicateOf string      `json:"duplicate_of,omitempty"`
	FileID      string      `json:"file_id,omitempty"`
	Stats       *Statistics `json:"stats,omitempty"`
}
