package moby

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Attribute categories used by the launcher.
const (
	CategorySound    = 1
	CategoryVideo    = 2
	CategoryMinCPU   = 11
	CategoryMinRAM   = 15
	MultipleVideoMsg = "Multiple video modes"
)

// Sound device name fragments, matched case-insensitively against
// category 1 attributes.
var (
	beeperDevices = []string{"pc speaker", "beeper", "tandy"}
	fmDevices     = []string{"adlib", "sound blaster", "opl", "yamaha", "fm"}
	midiDevices   = []string{"midi", "mt-32", "roland", "sound canvas"}
	digiDevices   = []string{"sound blaster", "gravis", "covox", "disney sound source", "pro audio spectrum", "digitized"}
)

// Metadata is the flattened record served by /getdata. It is rebuilt from
// cached upstream records on every request.
type Metadata struct {
	Platform  string  `json:"platform"`
	Year      string  `json:"year"`
	Name      string  `json:"name"`
	Publisher string  `json:"publisher"`
	Developer string  `json:"developer"`
	Genre     string  `json:"genre"`
	MinCPU    string  `json:"min_cpu"`
	MinRAM    string  `json:"min_ram"`
	Video     string  `json:"video"`
	Beeper    int     `json:"beeper"`
	FM        int     `json:"fm"`
	MIDI      int     `json:"midi"`
	DigiFX    int     `json:"digifx"`
	Rating    float64 `json:"rating"`
}

// BuildMetadata combines the global game record with the platform-scoped
// one. Either may be empty; missing fields stay zero.
func BuildMetadata(game, onPlatform GameRecord) Metadata {
	return Metadata{
		Platform:  PlatformName(onPlatform),
		Year:      Year(game, onPlatform),
		Name:      Title(game),
		Publisher: Publisher(onPlatform),
		Developer: Developer(onPlatform),
		Genre:     Genre(game),
		MinCPU:    MinCPU(onPlatform),
		MinRAM:    MinRAM(onPlatform),
		Video:     Video(onPlatform),
		Beeper:    Beeper(onPlatform),
		FM:        FM(onPlatform),
		MIDI:      MIDI(onPlatform),
		DigiFX:    DigiFX(onPlatform),
		Rating:    Rating(game),
	}
}

func jsonAt(rec GameRecord, p string) gjson.Result {
	if len(rec) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(rec, p)
}

// AttributeNames lists attribute_name for every attribute in category.
func AttributeNames(rec GameRecord, category int) []string {
	var names []string
	jsonAt(rec, "attributes").ForEach(func(_, a gjson.Result) bool {
		if a.Get("attribute_category_id").Int() != int64(category) {
			return true
		}
		if n := a.Get("attribute_name"); n.Exists() {
			names = append(names, n.String())
		}
		return true
	})
	return names
}

func firstAttribute(rec GameRecord, category int) string {
	if names := AttributeNames(rec, category); len(names) > 0 {
		return names[0]
	}
	return ""
}

func MinCPU(rec GameRecord) string { return firstAttribute(rec, CategoryMinCPU) }

func MinRAM(rec GameRecord) string { return firstAttribute(rec, CategoryMinRAM) }

// Video collapses several video mode attributes into MultipleVideoMsg.
func Video(rec GameRecord) string {
	names := AttributeNames(rec, CategoryVideo)
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return MultipleVideoMsg
	}
}

func Beeper(rec GameRecord) int { return soundFlag(rec, beeperDevices) }
func FM(rec GameRecord) int     { return soundFlag(rec, fmDevices) }
func MIDI(rec GameRecord) int   { return soundFlag(rec, midiDevices) }
func DigiFX(rec GameRecord) int { return soundFlag(rec, digiDevices) }

func soundFlag(rec GameRecord, devices []string) int {
	for _, name := range AttributeNames(rec, CategorySound) {
		lower := strings.ToLower(name)
		for _, d := range devices {
			if strings.Contains(lower, d) {
				return 1
			}
		}
	}
	return 0
}

// Company returns the first company credited with role in any release.
func Company(rec GameRecord, role string) string {
	var name string
	jsonAt(rec, "releases").ForEach(func(_, rel gjson.Result) bool {
		rel.Get("companies").ForEach(func(_, co gjson.Result) bool {
			if co.Get("role").String() == role {
				name = co.Get("company_name").String()
				return false
			}
			return true
		})
		return name == ""
	})
	return name
}

func Publisher(rec GameRecord) string { return Company(rec, "Published by") }

func Developer(rec GameRecord) string { return Company(rec, "Developed by") }

// Genre prefers the basic genre over perspective, setting and the like.
func Genre(rec GameRecord) string {
	var first, basic string
	jsonAt(rec, "genres").ForEach(func(_, g gjson.Result) bool {
		name := g.Get("genre_name").String()
		if first == "" {
			first = name
		}
		if g.Get("genre_category").String() == "Basic Genres" {
			basic = name
			return false
		}
		return true
	})
	if basic != "" {
		return basic
	}
	return first
}

func Rating(rec GameRecord) float64 { return jsonAt(rec, "moby_score").Float() }

func Title(rec GameRecord) string { return jsonAt(rec, "title").String() }

func PlatformName(rec GameRecord) string { return jsonAt(rec, "platform_name").String() }

// Year is the release year on the platform, or of the earliest listed
// platform when no platform record is available.
func Year(game, onPlatform GameRecord) string {
	date := jsonAt(onPlatform, "first_release_date").String()
	if date == "" {
		date = jsonAt(game, "platforms.0.first_release_date").String()
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
