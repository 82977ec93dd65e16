package broadcast

// Target selects the audience of a broadcast.
type Target string

const (
	TargetAll      Target = "all"
	TargetFree     Target = "free"
	TargetPremium  Target = "premium"
	TargetInactive Target = "inactive"
	TargetEnglish  Target = "en"
	TargetRussian  Target = "ru"
	TargetSpanish  Target = "es"
)

func ValidTarget(t Target) bool {
	switch t {
	case TargetAll, TargetFree, TargetPremium, TargetInactive,
		TargetEnglish, TargetRussian, TargetSpanish:
		return true
	}
	return false
}

// Content types a broadcast can carry.
const (
	ContentText  = "text"
	ContentPhoto = "photo"
	ContentVideo = "video"
)

type Content struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	FileID  string `json:"file_id,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Payload is the broadcast_message job payload.
type Payload struct {
	Target  Target  `json:"target"`
	Content Content `json:"content"`
}
