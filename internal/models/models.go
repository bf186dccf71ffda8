package models

import "time"

// InteractionRecord is one row of the joke interaction ledger. Each
// occurrence timestamp is nil until the interaction happens; repeats
// overwrite (last write wins). The joke content is a denormalized
// snapshot taken at interaction time so later remote edits never
// rewrite history.
type InteractionRecord struct {
	JokeID            string     `json:"joke_id"`
	Navigated         *time.Time `json:"navigated,omitempty"`
	Viewed            *time.Time `json:"viewed,omitempty"`
	Saved             *time.Time `json:"saved,omitempty"`
	Shared            *time.Time `json:"shared,omitempty"`
	LastUpdate        time.Time  `json:"last_update"`
	SetupText         *string    `json:"setup_text,omitempty"`
	PunchlineText     *string    `json:"punchline_text,omitempty"`
	SetupImageURL     *string    `json:"setup_image_url,omitempty"`
	PunchlineImageURL *string    `json:"punchline_image_url,omitempty"`
	FeedIndex         *int       `json:"feed_index,omitempty"`
}

// CategoryInteractionRecord is one row of the category interaction ledger.
type CategoryInteractionRecord struct {
	CategoryID string     `json:"category_id"`
	Viewed     *time.Time `json:"viewed,omitempty"`
	LastUpdate time.Time  `json:"last_update"`
}

// UsageSnapshot is the counter bundle pushed to the remote usage endpoint.
type UsageSnapshot struct {
	NumDaysUsed     int  `json:"num_days_used"`
	NumSavedJokes   int  `json:"num_saved_jokes"`
	NumJokesViewed  int  `json:"num_jokes_viewed"`
	NumSharedJokes  int  `json:"num_shared_jokes"`
	RequestedReview bool `json:"requested_review"`
}

// Joke is a feed item as served by the remote content backend.
type Joke struct {
	ID                string `json:"id"`
	SetupText         string `json:"setup_text"`
	PunchlineText     string `json:"punchline_text"`
	SetupImageURL     string `json:"setup_image_url,omitempty"`
	PunchlineImageURL string `json:"punchline_image_url,omitempty"`
	Category          string `json:"category,omitempty"`
	FeedIndex         int    `json:"feed_index"`
}
