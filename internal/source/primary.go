package source

// Descriptor names one question file and how its category is presented.
type Descriptor struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	File  string `json:"file"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// PrimarySources is the fixed set of categories shown on the home view, in
// display order. File paths are relative to the primary data directory.
func PrimarySources() []Descriptor {
	return []Descriptor{
		{Key: "allmanbildning", Name: "Allmänbildning", File: "allmanbildning.csv", Icon: "book",
			Color: "linear-gradient(135deg, #3b82f6 0%, #8b5cf6 100%)"},
		{Key: "musik", Name: "Musik", File: "musik.csv", Icon: "music",
			Color: "linear-gradient(135deg, #ec4899 0%, #ef4444 100%)"},
		{Key: "geografi", Name: "Geografi", File: "geografi.csv", Icon: "map",
			Color: "linear-gradient(135deg, #3b82f6 0%, #10b981 100%)"},
		{Key: "film", Name: "Film & TV", File: "film_tv.csv", Icon: "film",
			Color: "linear-gradient(135deg, #f97316 0%, #facc15 100%)"},
		{Key: "sport", Name: "Sport", File: "sport.csv", Icon: "trophy",
			Color: "linear-gradient(135deg, #6366f1 0%, #8b5cf6 100%)"},
		{Key: "teknik", Name: "Teknik", File: "teknik.csv", Icon: "computer",
			Color: "linear-gradient(135deg, #8b5cf6 0%, #ec4899 100%)"},
	}
}

// candidateFiles are probed when the extended manifest cannot be read.
var candidateFiles = []string{
	"Star Wars.csv", "Fotboll.csv", "Jul.csv", "Harry Potter.csv",
	"Dans.csv", "Motor.csv", "Sagan om Ringen.csv", "Sex & City.csv",
	"Netflix.csv", "Cocktails.csv", "Rymden.csv", "Andra världskriget.csv",
	"Flaggor.csv", "Mat.csv", "Kungligheter.csv",
	"Film.csv", "Musik.csv", "Historia.csv", "Geografi.csv", "Sport.csv",
	"Teknik.csv", "Konst.csv", "Litteratur.csv", "Vetenskap.csv", "Natur.csv",
}

// CandidateFiles returns a copy of the fallback probe list.
func CandidateFiles() []string { return append([]string(nil), candidateFiles...) }
