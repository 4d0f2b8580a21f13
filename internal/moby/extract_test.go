package moby

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const dosRecord = `{
  "game_id": 1068,
  "platform_id": 2,
  "platform_name": "DOS",
  "first_release_date": "1993-12-10",
  "attributes": [
    {"attribute_category_id": 11, "attribute_category_name": "Minimum CPU Class Required", "attribute_name": "Intel i386"},
    {"attribute_category_id": 15, "attribute_category_name": "Minimum RAM Required", "attribute_name": "4 MB"},
    {"attribute_category_id": 2, "attribute_category_name": "Video Modes Supported", "attribute_name": "VGA"},
    {"attribute_category_id": 1, "attribute_category_name": "Sound Devices Supported", "attribute_name": "PC Speaker"},
    {"attribute_category_id": 1, "attribute_category_name": "Sound Devices Supported", "attribute_name": "Sound Blaster"},
    {"attribute_category_id": 1, "attribute_category_name": "Sound Devices Supported", "attribute_name": "General MIDI"}
  ],
  "releases": [
    {"companies": [
      {"company_id": 1, "company_name": "id Software, Inc.", "role": "Developed by"},
      {"company_id": 2, "company_name": "id Software, Inc.", "role": "Published by"}
    ]},
    {"companies": [
      {"company_id": 3, "company_name": "GT Interactive", "role": "Published by"}
    ]}
  ]
}`

const globalRecord = `{
  "game_id": 1068,
  "title": "DOOM",
  "moby_score": 8.4,
  "genres": [
    {"genre_category": "Perspective", "genre_name": "1st-person"},
    {"genre_category": "Basic Genres", "genre_name": "Action"}
  ],
  "platforms": [{"platform_id": 2, "platform_name": "DOS", "first_release_date": "1993"}]
}`

func TestMinCPU(t *testing.T) {
	assert.Equal(t, "Intel i386", MinCPU(GameRecord(dosRecord)))
	assert.Equal(t, "", MinCPU(GameRecord(`{"attributes":[]}`)))
	assert.Equal(t, "", MinCPU(GameRecord(`{}`)))
	assert.Equal(t, "", MinCPU(nil))
}

func TestVideo(t *testing.T) {
	one := GameRecord(`{"attributes":[{"attribute_category_id":2,"attribute_name":"EGA"}]}`)
	two := GameRecord(`{"attributes":[
		{"attribute_category_id":2,"attribute_name":"EGA"},
		{"attribute_category_id":2,"attribute_name":"VGA"}]}`)

	assert.Equal(t, "", Video(GameRecord(`{"attributes":[]}`)))
	assert.Equal(t, "EGA", Video(one))
	assert.Equal(t, MultipleVideoMsg, Video(two))
	assert.Equal(t, "Multiple video modes", Video(two))
}

func TestSoundFlags(t *testing.T) {
	rec := GameRecord(dosRecord)
	assert.Equal(t, 1, Beeper(rec))
	assert.Equal(t, 1, FM(rec))
	assert.Equal(t, 1, MIDI(rec))
	assert.Equal(t, 1, DigiFX(rec))

	none := GameRecord(`{"attributes":[{"attribute_category_id":11,"attribute_name":"PC Speaker"}]}`)
	assert.Equal(t, 0, Beeper(none), "only category 1 counts")
	assert.Equal(t, 0, Beeper(nil))
}

func TestCompanies(t *testing.T) {
	rec := GameRecord(dosRecord)
	assert.Equal(t, "id Software, Inc.", Publisher(rec))
	assert.Equal(t, "id Software, Inc.", Developer(rec))
	assert.Equal(t, "", Publisher(GameRecord(`{"releases":[{"companies":[]}]}`)))
}

func TestGenrePrefersBasicGenre(t *testing.T) {
	assert.Equal(t, "Action", Genre(GameRecord(globalRecord)))
	assert.Equal(t, "Puzzle", Genre(GameRecord(`{"genres":[{"genre_category":"Theme","genre_name":"Puzzle"}]}`)))
	assert.Equal(t, "", Genre(nil))
}

func TestBuildMetadata(t *testing.T) {
	md := BuildMetadata(GameRecord(globalRecord), GameRecord(dosRecord))

	assert.Equal(t, Metadata{
		Platform:  "DOS",
		Year:      "1993",
		Name:      "DOOM",
		Publisher: "id Software, Inc.",
		Developer: "id Software, Inc.",
		Genre:     "Action",
		MinCPU:    "Intel i386",
		MinRAM:    "4 MB",
		Video:     "VGA",
		Beeper:    1,
		FM:        1,
		MIDI:      1,
		DigiFX:    1,
		Rating:    8.4,
	}, md)
}

func TestYearFallsBackToGlobalRecord(t *testing.T) {
	assert.Equal(t, "1993", Year(GameRecord(globalRecord), nil))
	assert.Equal(t, "", Year(nil, nil))
}
