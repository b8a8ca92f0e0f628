package model

import "time"

// Config holds the complete resolution engine configuration
type Config struct {
	Search SearchConfig `yaml:"search"`
	LLM    LLMConfig    `yaml:"llm"`
	Cache  CacheConfig  `yaml:"cache"`
	Tuning Tuning       `yaml:"tuning"`
	Output OutputConfig `yaml:"output"`
}

// SearchConfig controls the candidate search aggregator
type SearchConfig struct {
	// SourceTimeout bounds each individual collaborator lookup
	SourceTimeout time.Duration `yaml:"source_timeout"`

	// MentionTimeout bounds the whole multi-variant search for one mention
	MentionTimeout time.Duration `yaml:"mention_timeout"`

	// Limit is the per-call result limit passed to search collaborators
	Limit int `yaml:"limit"`

	// MaxVariants caps the lexical variants generated per mention
	MaxVariants int `yaml:"max_variants"`

	// RequestsPerSecond / Burst configure the per-source rate limiter
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// MemoTTL is how long per-mention search results are memoized in-process
	MemoTTL time.Duration `yaml:"memo_ttl"`
}

// LLMConfig controls the optional disambiguation model
type LLMConfig struct {
	// Provider name: "openai" or "" (disabled)
	Provider string `yaml:"provider"`

	// Model name, e.g. gpt-4o-mini
	Model string `yaml:"model"`

	// APIKey for the provider (usually from environment)
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the endpoint (OpenAI-compatible servers)
	BaseURL string `yaml:"base_url,omitempty"`

	// Timeout bounds the disambiguation call
	Timeout time.Duration `yaml:"timeout"`

	// MaxCandidatesPerMention caps rows supplied to the model per mention
	MaxCandidatesPerMention int `yaml:"max_candidates_per_mention"`

	// BreakerCooldown is how long the rate-limit circuit stays open
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`

	MaxTokens int `yaml:"max_tokens"`
}

// CacheConfig controls the bundle result cache
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// OutputConfig controls CLI output behavior
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Tuning collects the empirically tuned thresholds of the resolution
// pipeline. The values are preserved from production tuning; override them
// only with evaluation data to back the change.
type Tuning struct {
	// Mention extraction
	MaxMentions        int     `yaml:"max_mentions"`
	MaxPlanMentions    int     `yaml:"max_plan_mentions"`
	SingleTokenBonus   float64 `yaml:"single_token_bonus"`
	TwoTokenBonus      float64 `yaml:"two_token_bonus"`
	ShortMentionBonus  float64 `yaml:"short_mention_bonus"`
	SymbolBonus        float64 `yaml:"symbol_bonus"`
	LongMentionPenalty float64 `yaml:"long_mention_penalty"`
	LongMentionChars   int     `yaml:"long_mention_chars"`

	// Candidate search cutoffs
	BaseCutoff                  float64 `yaml:"base_cutoff"`
	SingleTokenDiseaseExtra     float64 `yaml:"single_token_disease_extra"`
	DiseaseCueNonDiseasePenalty float64 `yaml:"disease_cue_non_disease_penalty"`
	GeneHintBoost               float64 `yaml:"gene_hint_boost"`

	// Disease ranking weights
	MentionSimilarityWeight float64 `yaml:"mention_similarity_weight"`
	QuerySimilarityWeight   float64 `yaml:"query_similarity_weight"`
	RowSimilarityWeight     float64 `yaml:"row_similarity_weight"`
	TokenCoverageWeight     float64 `yaml:"token_coverage_weight"`
	MentionSupportBonus     float64 `yaml:"mention_support_bonus"`
	MentionSupportBonusMax  float64 `yaml:"mention_support_bonus_max"`
	LiteralPhraseBonus      float64 `yaml:"literal_phrase_bonus"`
	UnmatchedTokenPenalty   float64 `yaml:"unmatched_token_penalty"`
	PhenotypePenalty        float64 `yaml:"phenotype_penalty"`
	OntologyBonusStep       float64 `yaml:"ontology_bonus_step"`
	MaxDiseaseCandidates    int     `yaml:"max_disease_candidates"`

	// Deterministic disease selection
	ClearLeaderScore   float64 `yaml:"clear_leader_score"`
	ClearLeaderMargin  float64 `yaml:"clear_leader_margin"`
	WeakSingleHitScore float64 `yaml:"weak_single_hit_score"`

	// LLM skip heuristic
	SkipHighConfidenceScore float64 `yaml:"skip_high_confidence_score"`
	SkipMaxQueryTokens      int     `yaml:"skip_max_query_tokens"`
	SkipMaxRows             int     `yaml:"skip_max_rows"`

	// LLM anchor validation
	DiseaseAnchorMinSimilarity     float64 `yaml:"disease_anchor_min_similarity"`
	DiseaseAnchorLowConfSimilarity float64 `yaml:"disease_anchor_low_conf_similarity"`
	LowConfidenceThreshold         float64 `yaml:"low_confidence_threshold"`
	WeakDiseaseScore               float64 `yaml:"weak_disease_score"`
	StrongAnchorConfidence         float64 `yaml:"strong_anchor_confidence"`
}

// DefaultTuning returns the production-tuned thresholds
func DefaultTuning() Tuning {
	return Tuning{
		MaxMentions:        10,
		MaxPlanMentions:    8,
		SingleTokenBonus:   1.6,
		TwoTokenBonus:      1.8,
		ShortMentionBonus:  1.2,
		SymbolBonus:        0.55,
		LongMentionPenalty: 1.3,
		LongMentionChars:   60,

		BaseCutoff:                  0.32,
		SingleTokenDiseaseExtra:     0.16,
		DiseaseCueNonDiseasePenalty: 0.18,
		GeneHintBoost:               0.25,

		MentionSimilarityWeight: 2.8,
		QuerySimilarityWeight:   1.6,
		RowSimilarityWeight:     1.2,
		TokenCoverageWeight:     1.2,
		MentionSupportBonus:     0.4,
		MentionSupportBonusMax:  0.8,
		LiteralPhraseBonus:      2.4,
		UnmatchedTokenPenalty:   0.38,
		PhenotypePenalty:        0.3,
		OntologyBonusStep:       0.06,
		MaxDiseaseCandidates:    14,

		ClearLeaderScore:   2.2,
		ClearLeaderMargin:  1.4,
		WeakSingleHitScore: 3.1,

		SkipHighConfidenceScore: 3.2,
		SkipMaxQueryTokens:      4,
		SkipMaxRows:             3,

		DiseaseAnchorMinSimilarity:     0.42,
		DiseaseAnchorLowConfSimilarity: 0.56,
		LowConfidenceThreshold:         0.64,
		WeakDiseaseScore:               3.3,
		StrongAnchorConfidence:         0.75,
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			SourceTimeout:     5 * time.Second,
			MentionTimeout:    12 * time.Second,
			Limit:             12,
			MaxVariants:       4,
			RequestsPerSecond: 8,
			Burst:             8,
			MemoTTL:           5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:                "", // Disabled by default
			Timeout:                 6500 * time.Millisecond,
			MaxCandidatesPerMention: 6,
			BreakerCooldown:         60 * time.Second,
			MaxTokens:               800,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        10 * time.Minute,
			MaxEntries: 256,
		},
		Tuning: DefaultTuning(),
	}
}
