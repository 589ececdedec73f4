package gamedata

import "fmt"

// Subject is one of the nine academic subjects a card or exam belongs to.
type Subject string

const (
	SubjectChinese   Subject = "语文"
	SubjectMath      Subject = "数学"
	SubjectEnglish   Subject = "英语"
	SubjectPhysics   Subject = "物理"
	SubjectChemistry Subject = "化学"
	SubjectBiology   Subject = "生物"
	SubjectPolitics  Subject = "政治"
	SubjectHistory   Subject = "历史"
	SubjectGeography Subject = "地理"
)

// subjectOrder is the fixed stage rotation: level 1 is 语文, level 10 is 语文 again.
var subjectOrder = []Subject{
	SubjectChinese,
	SubjectMath,
	SubjectEnglish,
	SubjectPhysics,
	SubjectChemistry,
	SubjectBiology,
	SubjectPolitics,
	SubjectHistory,
	SubjectGeography,
}

// Subjects returns the subjects in stage order.
func Subjects() []Subject {
	out := make([]Subject, len(subjectOrder))
	copy(out, subjectOrder)
	return out
}

// SubjectForLevel returns the subject of a fixed stage. Levels below 1 map to level 1.
func SubjectForLevel(level int) Subject {
	if level < 1 {
		level = 1
	}
	return subjectOrder[(level-1)%len(subjectOrder)]
}

// Valid reports whether s is one of the nine known subjects.
func (s Subject) Valid() bool {
	for _, known := range subjectOrder {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSubject validates a raw subject string.
func ParseSubject(raw string) (Subject, error) {
	s := Subject(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown subject %q", raw)
	}
	return s, nil
}

// AttributeKind names one component of the attribute triple.
type AttributeKind string

const (
	AttrThinking    AttributeKind = "thinking"
	AttrInsight     AttributeKind = "insight"
	AttrImagination AttributeKind = "imagination"
)

// AttributeFor returns the attribute a card uses against an exam of the given subject.
// Sciences test thinking, languages and politics test insight, everything else imagination.
func AttributeFor(s Subject) AttributeKind {
	switch s {
	case SubjectMath, SubjectPhysics, SubjectChemistry:
		return AttrThinking
	case SubjectChinese, SubjectEnglish, SubjectPolitics:
		return AttrInsight
	default:
		return AttrImagination
	}
}

// SubjectDef carries presentation data for a subject loaded from subjects.json.
type SubjectDef struct {
	ID        Subject       `json:"id"`
	Attribute AttributeKind `json:"attribute"`
	Color     string        `json:"color"` // Hex colour used for the battle backdrop
}

// SubjectsFile represents the structure of subjects.json.
type SubjectsFile struct {
	Subjects []SubjectDef `json:"subjects"`
}

// LoadSubjects loads subject definitions from the embedded subjects.json file.
func LoadSubjects() ([]SubjectDef, error) {
	file, err := Load[SubjectsFile]("subjects.json")
	if err != nil {
		return nil, err
	}
	return file.Subjects, nil
}
