package main

import (
	"github.com/broady/docgate"
	"github.com/broady/docgate/schema"
)

// TextDoc is a document to classify.
type TextDoc struct {
	ID   string   `json:"id" validate:"required"`
	Text string   `json:"text" validate:"required"`
	Lang string   `json:"lang,omitempty" validate:"omitempty,oneof=en de fr es"`
	Tags []string `json:"tags,omitempty"`
}

func (d TextDoc) DocumentID() string { return d.ID }

// Prediction is one classification result.
type Prediction struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Filter restricts a search to documents whose field matches a value.
type Filter struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// Query is a search request document. Filters are nested records, written
// as a JSON array inside a single CSV cell.
type Query struct {
	ID      string                 `json:"id" validate:"required"`
	Query   string                 `json:"query" validate:"required"`
	Filters schema.DocList[Filter] `json:"filters,omitempty"`
	Boost   any                    `json:"boost,omitempty" union:"float,bool"`
}

func (q Query) DocumentID() string { return q.ID }

// SearchParams configures a search. TopK is mandatory, so every search
// request must carry parameters.
type SearchParams struct {
	TopK int    `json:"top_k" validate:"required,gt=0"`
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=dense sparse hybrid"`
}

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// endpoints returns the routes served by the binary.
func endpoints() []docgate.Route {
	return []docgate.Route{
		docgate.NewEndpoint[TextDoc, Prediction, docgate.Params]("classify"),
		docgate.NewEndpoint[Query, Hit, SearchParams]("search"),
	}
}
