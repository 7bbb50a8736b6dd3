// Package review defines the normalized review row and the mapping from the
// Steam review API payload into it.
package review

import (
	"strings"
)

// Sentiment labels derived from the recommendation flag.
const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
)

// Columns is the fixed column order shared by every export format.
var Columns = []string{
	"review_id",
	"author_id",
	"author_playtime_minutes",
	"text",
	"recommended",
	"helpful_votes",
	"funny_votes",
	"sentiment",
}

// Record is one flattened review.
//
// Field order matches Columns; the parquet writer derives its schema from it.
type Record struct {
	ReviewID              string `json:"review_id" parquet:"review_id"`
	AuthorID              string `json:"author_id" parquet:"author_id"`
	AuthorPlaytimeMinutes int64  `json:"author_playtime_minutes" parquet:"author_playtime_minutes"`
	Text                  string `json:"text" parquet:"text"`
	Recommended           bool   `json:"recommended" parquet:"recommended"`
	HelpfulVotes          int64  `json:"helpful_votes" parquet:"helpful_votes"`
	FunnyVotes            int64  `json:"funny_votes" parquet:"funny_votes"`
	Sentiment             string `json:"sentiment" parquet:"sentiment"`
}

// Author is the reviewer block of a raw review.
type Author struct {
	SteamID         string `json:"steamid"`
	PlaytimeForever int64  `json:"playtime_forever"`
}

// Raw is a review as returned by the appreviews endpoint. Fields the export
// does not use are ignored during decoding.
type Raw struct {
	RecommendationID string `json:"recommendationid"`
	Author           Author `json:"author"`
	Review           string `json:"review"`
	VotedUp          bool   `json:"voted_up"`
	VotesUp          int64  `json:"votes_up"`
	VotesFunny       int64  `json:"votes_funny"`
}

// Flatten maps a raw review to a Record. Sentiment is left empty; it is
// assigned over the whole collection by LabelSentiment.
func Flatten(r Raw) Record {
	return Record{
		ReviewID:              r.RecommendationID,
		AuthorID:              r.Author.SteamID,
		AuthorPlaytimeMinutes: nonNegative(r.Author.PlaytimeForever),
		Text:                  strings.TrimSpace(r.Review),
		Recommended:           r.VotedUp,
		HelpfulVotes:          nonNegative(r.VotesUp),
		FunnyVotes:            nonNegative(r.VotesFunny),
	}
}

// SentimentOf returns the label for a recommendation flag.
func SentimentOf(recommended bool) string {
	if recommended {
		return SentimentPositive
	}
	return SentimentNegative
}

// LabelSentiment sets Sentiment on every record in place.
func LabelSentiment(records []Record) {
	for i := range records {
		records[i].Sentiment = SentimentOf(records[i].Recommended)
	}
}

// Tally counts records per sentiment label.
type Tally struct {
	Positive int
	Negative int
}

// Total returns the number of counted records.
func (t Tally) Total() int {
	return t.Positive + t.Negative
}

// Count tallies records by their recommendation flag, so it is correct even
// for records that have not been labelled yet.
func Count(records []Record) Tally {
	var t Tally
	for _, r := range records {
		if r.Recommended {
			t.Positive++
		} else {
			t.Negative++
		}
	}
	return t
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
