package constants

import "time"

const (
	// NotSpecified is the literal stored when requirement discovery finds
	// nothing in the posting text.
	NotSpecified = "Not specified"

	// NeutralScore is the component score used when no structured
	// comparison is possible.
	NeutralScore = 0.5

	// MinSkillTokenLength: harvested skill tokens shorter than this are
	// discarded as noise ("R" survives nowhere, "Go" does not either;
	// postings spell it "Golang").
	MinSkillTokenLength = 3
)

// Redis key layout: app:{module}:{entity}[:{id}]
const (
	// KeyRawTextMD5Set holds MD5s of every ingested CV text (SET).
	KeyRawTextMD5Set = "app:cv:dedup_set"

	// KeyRawTextMD5ToSource maps a raw-text MD5 to the source id that first
	// carried it (STRING). Format: app:cv:md5_to_source:{md5}
	KeyRawTextMD5ToSource = "app:cv:md5_to_source:%s"

	// DefaultRawTextExpire bounds dedupe records when config omits a TTL.
	DefaultRawTextExpire = 30 * 24 * time.Hour
)
