package profile

import (
	"encoding/json"
	"strings"
)

// Answers holds the ten onboarding sections a creator fills in. Every field
// is optional free text; a section left entirely blank is treated as absent.
type Answers struct {
	WhoYouAre        *WhoYouAre        `json:"whoYouAre,omitempty"`
	WhyProduct       *WhyProduct       `json:"whyProduct,omitempty"`
	Proof            *Proof            `json:"proof,omitempty"`
	TargetAudience   *TargetAudience   `json:"targetAudience,omitempty"`
	VoiceStyle       *VoiceStyle       `json:"voiceStyle,omitempty"`
	Beliefs          *Beliefs          `json:"beliefs,omitempty"`
	Stories          *Stories          `json:"stories,omitempty"`
	ProductSpecifics *ProductSpecifics `json:"productSpecifics,omitempty"`
	Preferences      *Preferences      `json:"preferences,omitempty"`
	ContentPatterns  *ContentPatterns  `json:"contentPatterns,omitempty"`
}

type WhoYouAre struct {
	Bio      string `json:"bio,omitempty"`
	Building string `json:"building,omitempty"`
	Remember string `json:"remember,omitempty"`
}

type WhyProduct struct {
	WhenStartedCaring     string `json:"whenStartedCaring,omitempty"`
	Experiences           string `json:"experiences,omitempty"`
	ExactMoment           string `json:"exactMoment,omitempty"`
	RelationshipEvolution string `json:"relationshipEvolution,omitempty"`
}

type Proof struct {
	BuiltBefore string `json:"builtBefore,omitempty"`
	Numbers     string `json:"numbers,omitempty"`
	Wins        string `json:"wins,omitempty"`
	Losses      string `json:"losses,omitempty"`
}

type TargetAudience struct {
	TalkingTo      string `json:"talkingTo,omitempty"`
	StrugglingWith string `json:"strugglingWith,omitempty"`
	SecretlyWant   string `json:"secretlyWant,omitempty"`
	WantThemToDo   string `json:"wantThemToDo,omitempty"`
}

type VoiceStyle struct {
	HowTalkOnline    string `json:"howTalkOnline,omitempty"`
	AdjacentCreators string `json:"adjacentCreators,omitempty"`
	HateInContent    string `json:"hateInContent,omitempty"`
	SpeakingAs       string `json:"speakingAs,omitempty"`
}

type Beliefs struct {
	SocialMedia      string `json:"socialMedia,omitempty"`
	BuildingProducts string `json:"buildingProducts,omitempty"`
	WorkLearning     string `json:"workLearning,omitempty"`
	ContrarianTakes  string `json:"contrarianTakes,omitempty"`
}

type Stories struct {
	MomentProvesCare string `json:"momentProvesCare,omitempty"`
	HelpedSomeone    string `json:"helpedSomeone,omitempty"`
	FailedAndChanged string `json:"failedAndChanged,omitempty"`
	DeepInCulture    string `json:"deepInCulture,omitempty"`
}

type ProductSpecifics struct {
	WhatDoesItDo         string `json:"whatDoesItDo,omitempty"`
	Stage                string `json:"stage,omitempty"`
	OneAction            string `json:"oneAction,omitempty"`
	NonNegotiablePhrases string `json:"nonNegotiablePhrases,omitempty"`
}

type Preferences struct {
	NeverFake      string `json:"neverFake,omitempty"`
	AvoidEntirely  string `json:"avoidEntirely,omitempty"`
	OkayWithFlexing string `json:"okayWithFlexing,omitempty"`
	NeverUse       string `json:"neverUse,omitempty"`
}

type ContentPatterns struct {
	HookFormulas         string `json:"hookFormulas,omitempty"`
	StorytellingPatterns string `json:"storytellingPatterns,omitempty"`
	RecurringSeries      string `json:"recurringSeries,omitempty"`
}

// UnmarshalJSON decodes answers leniently: a section whose value is not an
// object (or otherwise fails to decode) is treated as absent rather than
// failing the whole document. Onboarding payloads come from evolving
// clients, so malformed sections degrade silently.
func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil // non-object answers → everything absent
	}

	decodeSection(raw, "whoYouAre", &a.WhoYouAre)
	decodeSection(raw, "whyProduct", &a.WhyProduct)
	decodeSection(raw, "proof", &a.Proof)
	decodeSection(raw, "targetAudience", &a.TargetAudience)
	decodeSection(raw, "voiceStyle", &a.VoiceStyle)
	decodeSection(raw, "beliefs", &a.Beliefs)
	decodeSection(raw, "stories", &a.Stories)
	decodeSection(raw, "productSpecifics", &a.ProductSpecifics)
	decodeSection(raw, "preferences", &a.Preferences)
	decodeSection(raw, "contentPatterns", &a.ContentPatterns)
	return nil
}

func decodeSection[T any](raw map[string]json.RawMessage, key string, dst **T) {
	data, ok := raw[key]
	if !ok {
		return
	}
	var section T
	if err := json.Unmarshal(data, &section); err != nil {
		return
	}
	*dst = &section
}

// Empty reports whether no section carries any content. Saving an empty
// profile is rejected upstream: re-indexing it would wipe every stored
// memory for nothing.
func (a Answers) Empty() bool {
	return len(a.sections()) == 0
}

// field is one labeled sub-answer within a section.
type field struct {
	Label string
	Value string
}

// sectionBlock is the renderable form of one present section.
type sectionBlock struct {
	Key    string // stable identifier, used as chunk metadata
	Title  string
	Fields []field
}

// present reports whether at least one field has content. Sections where
// every field is blank are omitted from rendering entirely.
func (s sectionBlock) present() bool {
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Value) != "" {
			return true
		}
	}
	return false
}

// sections flattens the answers into renderable blocks, in onboarding
// order, keeping only sections with at least one answered field.
func (a Answers) sections() []sectionBlock {
	var all []sectionBlock

	if s := a.WhoYouAre; s != nil {
		all = append(all, sectionBlock{"whoYouAre", "WHO YOU ARE", []field{
			{"Bio", s.Bio},
			{"Building", s.Building},
			{"Remember for", s.Remember},
		}})
	}
	if s := a.WhyProduct; s != nil {
		all = append(all, sectionBlock{"whyProduct", "YOUR JOURNEY & MOTIVATION", []field{
			{"Started caring", s.WhenStartedCaring},
			{"Experiences", s.Experiences},
			{"Exact moment", s.ExactMoment},
			{"Relationship evolution", s.RelationshipEvolution},
		}})
	}
	if s := a.Proof; s != nil {
		all = append(all, sectionBlock{"proof", "PROOF & CREDIBILITY", []field{
			{"Built before", s.BuiltBefore},
			{"Numbers", s.Numbers},
			{"Wins", s.Wins},
			{"Losses", s.Losses},
		}})
	}
	if s := a.TargetAudience; s != nil {
		all = append(all, sectionBlock{"targetAudience", "YOUR AUDIENCE", []field{
			{"Talking to", s.TalkingTo},
			{"Struggling with", s.StrugglingWith},
			{"Secretly want", s.SecretlyWant},
			{"Want them to do", s.WantThemToDo},
		}})
	}
	if s := a.VoiceStyle; s != nil {
		all = append(all, sectionBlock{"voiceStyle", "VOICE & COMMUNICATION STYLE", []field{
			{"How you communicate", s.HowTalkOnline},
			{"Similar voices", s.AdjacentCreators},
			{"Dislikes", s.HateInContent},
			{"Speaking as", s.SpeakingAs},
		}})
	}
	if s := a.Beliefs; s != nil {
		all = append(all, sectionBlock{"beliefs", "BELIEFS & PRINCIPLES", []field{
			{"Your field/industry", s.SocialMedia},
			{"Building/creating", s.BuildingProducts},
			{"Work/learning/life", s.WorkLearning},
			{"Contrarian takes", s.ContrarianTakes},
		}})
	}
	if s := a.Stories; s != nil {
		all = append(all, sectionBlock{"stories", "STORIES & MOMENTS", []field{
			{"Moment proves care", s.MomentProvesCare},
			{"Helped someone", s.HelpedSomeone},
			{"Failed and changed", s.FailedAndChanged},
			{"Deep in culture", s.DeepInCulture},
		}})
	}
	if s := a.ProductSpecifics; s != nil {
		all = append(all, sectionBlock{"productSpecifics", "PROJECT SPECIFICS", []field{
			{"What it does", s.WhatDoesItDo},
			{"Stage", s.Stage},
			{"One action", s.OneAction},
			{"Non-negotiable phrases", s.NonNegotiablePhrases},
		}})
	}
	if s := a.Preferences; s != nil {
		all = append(all, sectionBlock{"preferences", "PREFERENCES & BOUNDARIES", []field{
			{"Never fake", s.NeverFake},
			{"Avoid entirely", s.AvoidEntirely},
			{"Okay with sharing achievements", s.OkayWithFlexing},
			{"Never use", s.NeverUse},
		}})
	}
	if s := a.ContentPatterns; s != nil {
		all = append(all, sectionBlock{"contentPatterns", "COMMUNICATION PATTERNS", []field{
			{"Hook patterns", s.HookFormulas},
			{"Storytelling patterns", s.StorytellingPatterns},
			{"Recurring themes", s.RecurringSeries},
		}})
	}

	blocks := all[:0]
	for _, s := range all {
		if s.present() {
			blocks = append(blocks, s)
		}
	}
	return blocks
}
