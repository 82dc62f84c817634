package qdrant

import "github.com/ragline/ragline/internal/domain"

// payloadDTO mirrors the stored point payload on the wire.
type payloadDTO struct {
	Text        string         `json:"text"`
	ContentHash string         `json:"content_hash"`
	SourceID    int            `json:"source_item_id"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Type        string         `json:"type"`
	Language    string         `json:"language,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

func (p payloadDTO) toDomain() domain.Payload {
	return domain.Payload{
		Text:        p.Text,
		ContentHash: p.ContentHash,
		SourceID:    p.SourceID,
		Title:       p.Title,
		URL:         p.URL,
		Type:        p.Type,
		Language:    p.Language,
		Extra:       p.Extra,
	}
}

type searchResponse struct {
	Result []struct {
		ID      int        `json:"id"`
		Score   float32    `json:"score"`
		Payload payloadDTO `json:"payload"`
	} `json:"result"`
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      int        `json:"id"`
			Vector  []float32  `json:"vector"`
			Payload payloadDTO `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

type collectionInfoResponse struct {
	Result struct {
		Status      string `json:"status"`
		PointsCount int    `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// encodePoints converts points to wire maps. Payload strings are sanitized
// here so that malformed CMS content cannot break serialization downstream.
func encodePoints(points []domain.Point) []map[string]any {
	out := make([]map[string]any, len(points))
	for i, p := range points {
		payload := map[string]any{
			"text":           domain.SanitizeText(p.Payload.Text),
			"content_hash":   p.Payload.ContentHash,
			"source_item_id": p.Payload.SourceID,
			"title":          domain.SanitizeText(p.Payload.Title),
			"url":            domain.SanitizeText(p.Payload.URL),
			"type":           p.Payload.Type,
		}
		if p.Payload.Language != "" {
			payload["language"] = p.Payload.Language
		}
		if len(p.Payload.Extra) > 0 {
			payload["extra"] = domain.SanitizeValue(p.Payload.Extra)
		}
		out[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": payload,
		}
	}
	return out
}
