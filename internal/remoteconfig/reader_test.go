package remoteconfig

import (
	"context"
	"errors"
	"io"
	"testing"

	"jokefeed/pkg/logger"
)

func init() {
	logger.Init("error", io.Discard)
}

type fakeFetcher struct {
	values map[string]any
	err    error
}

func (f *fakeFetcher) FetchAndActivate(ctx context.Context) (map[string]any, error) {
	return f.values, f.err
}

func newReader(t *testing.T) *Reader {
	t.Helper()

	r, err := NewReader(AllParams)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestDefaultsBeforeInit(t *testing.T) {
	r := newReader(t)

	if v := r.GetInt(ParamReviewMinDaysUsed); v != 10 {
		t.Errorf("GetInt = %d, want default 10", v)
	}
	if v := r.GetBool(ParamShareImagesEnabled); v != true {
		t.Errorf("GetBool = %v, want default true", v)
	}
	if v := r.GetEnum(ParamFeedMode); v != "shuffled" {
		t.Errorf("GetEnum = %q, want default shuffled", v)
	}
}

func TestDefaultsWhenFetchFails(t *testing.T) {
	r := newReader(t)
	r.Init(context.Background(), &fakeFetcher{err: errors.New("network down")})

	if !r.Initialized() {
		t.Error("reader not marked initialized after failed fetch")
	}

	// Every typed getter must return exactly its descriptor default.
	if v := r.GetInt(ParamReviewMinDaysUsed); v != 10 {
		t.Errorf("GetInt = %d, want 10", v)
	}
	if v := r.GetInt(ParamReviewMinSavedJokes); v != 3 {
		t.Errorf("GetInt = %d, want 3", v)
	}
	if v := r.GetInt(ParamReviewMinSharedJokes); v != 1 {
		t.Errorf("GetInt = %d, want 1", v)
	}
	if v := r.GetInt(ParamReviewMinJokesViewed); v != 30 {
		t.Errorf("GetInt = %d, want 30", v)
	}
	if v := r.GetBool(ParamReviewRequireSubscription); v != false {
		t.Errorf("GetBool = %v, want false", v)
	}
	if v := r.GetDouble(ParamAdFrequency); v != 0.0 {
		t.Errorf("GetDouble = %v, want 0", v)
	}
	if v := r.GetEnum(ParamFeedMode); v != "shuffled" {
		t.Errorf("GetEnum = %q, want shuffled", v)
	}
}

func TestFetchedValuesOverrideDefaults(t *testing.T) {
	r := newReader(t)
	r.Init(context.Background(), &fakeFetcher{values: map[string]any{
		"reviewMinDaysUsed":         5,
		"reviewRequireSubscription": true,
		"adFrequency":               0.25,
	}})

	if v := r.GetInt(ParamReviewMinDaysUsed); v != 5 {
		t.Errorf("GetInt = %d, want fetched 5", v)
	}
	if v := r.GetBool(ParamReviewRequireSubscription); !v {
		t.Errorf("GetBool = %v, want fetched true", v)
	}
	if v := r.GetDouble(ParamAdFrequency); v != 0.25 {
		t.Errorf("GetDouble = %v, want fetched 0.25", v)
	}

	// Unfetched keys still serve defaults.
	if v := r.GetInt(ParamReviewMinSavedJokes); v != 3 {
		t.Errorf("GetInt = %d, want default 3", v)
	}
}

func TestValidatorRejectionFallsBack(t *testing.T) {
	r := newReader(t)
	r.Init(context.Background(), &fakeFetcher{values: map[string]any{
		"reviewMinDaysUsed": -2,
		"adFrequency":       3.5,
	}})

	if v := r.GetInt(ParamReviewMinDaysUsed); v != 10 {
		t.Errorf("GetInt = %d, want default 10 after validator rejection", v)
	}
	if v := r.GetDouble(ParamAdFrequency); v != 0.0 {
		t.Errorf("GetDouble = %v, want default 0 after validator rejection", v)
	}
}

func TestEnumMatchingCaseInsensitive(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"CURATED", "curated"},
		{"Chronological", "chronological"},
		{"shuffled", "shuffled"},
		{"bogus", "shuffled"},
		{"", "shuffled"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := newReader(t)
			r.Init(context.Background(), &fakeFetcher{values: map[string]any{
				"feedMode": tt.raw,
			}})

			if v := r.GetEnum(ParamFeedMode); v != tt.want {
				t.Errorf("GetEnum(%q) = %q, want %q", tt.raw, v, tt.want)
			}
		})
	}
}

func TestNewReaderRejectsBadDescriptors(t *testing.T) {
	_, err := NewReader([]Param{{Key: "", Kind: KindInt, Default: 1}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrInvalidParam) {
		t.Errorf("error = %v, want ErrInvalidParam", err)
	}
}
