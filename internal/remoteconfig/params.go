package remoteconfig

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidParam = errors.New("invalid remote param descriptor")

// Kind is the declared value type of a remote parameter.
type Kind string

const (
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
	KindDouble Kind = "double"
	KindString Kind = "string"
	KindEnum   Kind = "enum"
)

// Param describes one remote configuration parameter: its key, declared
// type, compiled-in default, an optional validator over fetched values, and
// (for enums) the permitted symbols. The default is returned whenever the
// remote side is unavailable or serves a value the validator rejects.
type Param struct {
	Key        string
	Kind       Kind
	Default    any
	Validate   func(any) bool
	EnumValues []string
}

// Review thresholds and feature parameters. Defaults mirror the values the
// backend ships when no override is configured.
var (
	ParamReviewMinDaysUsed = Param{
		Key: "reviewMinDaysUsed", Kind: KindInt, Default: 10,
		Validate: nonNegativeInt,
	}
	ParamReviewMinSavedJokes = Param{
		Key: "reviewMinSavedJokes", Kind: KindInt, Default: 3,
		Validate: nonNegativeInt,
	}
	ParamReviewMinSharedJokes = Param{
		Key: "reviewMinSharedJokes", Kind: KindInt, Default: 1,
		Validate: nonNegativeInt,
	}
	ParamReviewMinJokesViewed = Param{
		Key: "reviewMinJokesViewed", Kind: KindInt, Default: 30,
		Validate: nonNegativeInt,
	}
	ParamReviewRequireSubscription = Param{
		Key: "reviewRequireSubscription", Kind: KindBool, Default: false,
	}
	ParamShareImagesEnabled = Param{
		Key: "shareImagesEnabled", Kind: KindBool, Default: true,
	}
	ParamFeedMode = Param{
		Key: "feedMode", Kind: KindEnum, Default: "shuffled",
		EnumValues: []string{"chronological", "shuffled", "curated"},
	}
	ParamAdFrequency = Param{
		Key: "adFrequency", Kind: KindDouble, Default: 0.0,
		Validate: func(v any) bool {
			f, ok := v.(float64)
			return ok && f >= 0 && f <= 1
		},
	}
)

// AllParams lists every descriptor the app reads; ValidateParams runs over
// this set at startup.
var AllParams = []Param{
	ParamReviewMinDaysUsed,
	ParamReviewMinSavedJokes,
	ParamReviewMinSharedJokes,
	ParamReviewMinJokesViewed,
	ParamReviewRequireSubscription,
	ParamShareImagesEnabled,
	ParamFeedMode,
	ParamAdFrequency,
}

func nonNegativeInt(v any) bool {
	n, ok := v.(int)
	return ok && n >= 0
}

// ValidateParams checks every descriptor for structural defects: empty or
// duplicate keys, a default whose type does not match the declared kind, or
// an enum default outside its permitted set. A failure here is a code
// defect, not a runtime condition, so the returned error is meant to abort
// startup.
func ValidateParams(params []Param) error {
	seen := make(map[string]struct{}, len(params))

	for _, p := range params {
		if p.Key == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidParam)
		}
		if _, dup := seen[p.Key]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidParam, p.Key)
		}
		seen[p.Key] = struct{}{}

		if err := checkDefault(p); err != nil {
			return err
		}
	}

	return nil
}

func checkDefault(p Param) error {
	switch p.Kind {
	case KindInt:
		if _, ok := p.Default.(int); !ok {
			return fmt.Errorf("%w: %q: default %v is not int", ErrInvalidParam, p.Key, p.Default)
		}
	case KindBool:
		if _, ok := p.Default.(bool); !ok {
			return fmt.Errorf("%w: %q: default %v is not bool", ErrInvalidParam, p.Key, p.Default)
		}
	case KindDouble:
		if _, ok := p.Default.(float64); !ok {
			return fmt.Errorf("%w: %q: default %v is not double", ErrInvalidParam, p.Key, p.Default)
		}
	case KindString:
		if _, ok := p.Default.(string); !ok {
			return fmt.Errorf("%w: %q: default %v is not string", ErrInvalidParam, p.Key, p.Default)
		}
	case KindEnum:
		def, ok := p.Default.(string)
		if !ok {
			return fmt.Errorf("%w: %q: enum default %v is not a symbol", ErrInvalidParam, p.Key, p.Default)
		}
		if len(p.EnumValues) == 0 {
			return fmt.Errorf("%w: %q: enum with no permitted values", ErrInvalidParam, p.Key)
		}
		for _, v := range p.EnumValues {
			if strings.EqualFold(v, def) {
				return nil
			}
		}
		return fmt.Errorf("%w: %q: enum default %q not in permitted set", ErrInvalidParam, p.Key, def)
	default:
		return fmt.Errorf("%w: %q: unknown kind %q", ErrInvalidParam, p.Key, p.Kind)
	}
	return nil
}
