// Package voices holds the static catalog of synthesis voices.
//
// Voice discovery at runtime is deliberately avoided: the backends ship a
// fixed voice set per release, and a static catalog keeps validation cheap
// and deterministic.
package voices

import "sort"

// Supported model identifiers.
const (
	ModelKokoro     = "kokoro"
	ModelSupertonic = "supertonic"
)

// Voice describes a single synthesis voice.
type Voice struct {
	Name        string `json:"name"`
	Language    string `json:"language"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

// Language describes a language supported by at least one voice.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

// supertonicVoices are English only, five male and five female.
var supertonicVoices = []Voice{
	{Name: "M1", Language: "en", Gender: "male", Description: "English Male M1"},
	{Name: "M2", Language: "en", Gender: "male", Description: "English Male M2"},
	{Name: "M3", Language: "en", Gender: "male", Description: "English Male M3"},
	{Name: "M4", Language: "en", Gender: "male", Description: "English Male M4"},
	{Name: "M5", Language: "en", Gender: "male", Description: "English Male M5"},
	{Name: "F1", Language: "en", Gender: "female", Description: "English Female F1"},
	{Name: "F2", Language: "en", Gender: "female", Description: "English Female F2"},
	{Name: "F3", Language: "en", Gender: "female", Description: "English Female F3"},
	{Name: "F4", Language: "en", Gender: "female", Description: "English Female F4"},
	{Name: "F5", Language: "en", Gender: "female", Description: "English Female F5"},
}

// kokoroVoices follow the [language][gender]_[name] convention:
// a=American, b=British, j=Japanese, k=Korean, z=Chinese, e=Spanish,
// f=French, g=German, i=Italian, p=Portuguese; f=female, m=male.
var kokoroVoices = []Voice{
	{Name: "af_heart", Language: "en", Gender: "female", Description: "American Female Heart"},
	{Name: "af_bella", Language: "en", Gender: "female", Description: "American Female Bella"},
	{Name: "af_nicole", Language: "en", Gender: "female", Description: "American Female Nicole"},
	{Name: "af_sarah", Language: "en", Gender: "female", Description: "American Female Sarah"},
	{Name: "af_amber", Language: "en", Gender: "female", Description: "American Female Amber"},
	{Name: "am_adam", Language: "en", Gender: "male", Description: "American Male Adam"},
	{Name: "am_michael", Language: "en", Gender: "male", Description: "American Male Michael"},
	{Name: "am_john", Language: "en", Gender: "male", Description: "American Male John"},
	{Name: "bf_emma", Language: "en", Gender: "female", Description: "British Female Emma"},
	{Name: "bf_olivia", Language: "en", Gender: "female", Description: "British Female Olivia"},
	{Name: "bm_lewis", Language: "en", Gender: "male", Description: "British Male Lewis"},
	{Name: "bm_james", Language: "en", Gender: "male", Description: "British Male James"},
	{Name: "jf_nanako", Language: "ja", Gender: "female", Description: "Japanese Female Nanako"},
	{Name: "jf_akari", Language: "ja", Gender: "female", Description: "Japanese Female Akari"},
	{Name: "jm_hayato", Language: "ja", Gender: "male", Description: "Japanese Male Hayato"},
	{Name: "jm_daichi", Language: "ja", Gender: "male", Description: "Japanese Male Daichi"},
	{Name: "kf_minji", Language: "ko", Gender: "female", Description: "Korean Female Minji"},
	{Name: "kf_soyeon", Language: "ko", Gender: "female", Description: "Korean Female Soyeon"},
	{Name: "km_junho", Language: "ko", Gender: "male", Description: "Korean Male Junho"},
	{Name: "km_sung", Language: "ko", Gender: "male", Description: "Korean Male Sung"},
	{Name: "zf_xiaoxiao", Language: "zh", Gender: "female", Description: "Chinese Female Xiaoxiao"},
	{Name: "zf_xiaowan", Language: "zh", Gender: "female", Description: "Chinese Female Xiaowan"},
	{Name: "zm_xiaoyu", Language: "zh", Gender: "male", Description: "Chinese Male Xiaoyu"},
	{Name: "zm_yunxi", Language: "zh", Gender: "male", Description: "Chinese Male Yunxi"},
	{Name: "ef_carmen", Language: "es", Gender: "female", Description: "Spanish Female Carmen"},
	{Name: "ef_rosa", Language: "es", Gender: "female", Description: "Spanish Female Rosa"},
	{Name: "em_carlos", Language: "es", Gender: "male", Description: "Spanish Male Carlos"},
	{Name: "em_juan", Language: "es", Gender: "male", Description: "Spanish Male Juan"},
	{Name: "ff_léa", Language: "fr", Gender: "female", Description: "French Female Léa"},
	{Name: "ff_marie", Language: "fr", Gender: "female", Description: "French Female Marie"},
	{Name: "fm_bruno", Language: "fr", Gender: "male", Description: "French Male Bruno"},
	{Name: "fm_jean", Language: "fr", Gender: "male", Description: "French Male Jean"},
	{Name: "gf_anna", Language: "de", Gender: "female", Description: "German Female Anna"},
	{Name: "gf_birgitta", Language: "de", Gender: "female", Description: "German Female Birgitta"},
	{Name: "gm_lars", Language: "de", Gender: "male", Description: "German Male Lars"},
	{Name: "gm_markus", Language: "de", Gender: "male", Description: "German Male Markus"},
	{Name: "if_giulia", Language: "it", Gender: "female", Description: "Italian Female Giulia"},
	{Name: "if_paola", Language: "it", Gender: "female", Description: "Italian Female Paola"},
	{Name: "im_marco", Language: "it", Gender: "male", Description: "Italian Male Marco"},
	{Name: "im_stefano", Language: "it", Gender: "male", Description: "Italian Male Stefano"},
	{Name: "pf_helena", Language: "pt", Gender: "female", Description: "Portuguese Female Helena"},
	{Name: "pf_fernanda", Language: "pt", Gender: "female", Description: "Portuguese Female Fernanda"},
	{Name: "pm_paulo", Language: "pt", Gender: "male", Description: "Portuguese Male Paulo"},
	{Name: "pm_sergio", Language: "pt", Gender: "male", Description: "Portuguese Male Sergio"},
}

var languageNames = map[string][2]string{
	"en": {"English", "English"},
	"ja": {"Japanese", "日本語"},
	"ko": {"Korean", "한국어"},
	"zh": {"Chinese", "中文"},
	"es": {"Spanish", "Español"},
	"fr": {"French", "Français"},
	"de": {"German", "Deutsch"},
	"it": {"Italian", "Italiano"},
	"pt": {"Portuguese", "Português"},
}

// ByModel returns the catalog for a model, or nil for unknown models.
func ByModel(modelID string) []Voice {
	switch modelID {
	case ModelKokoro:
		return kokoroVoices
	case ModelSupertonic:
		return supertonicVoices
	default:
		return nil
	}
}

// IsValid reports whether voiceID belongs to modelID.
func IsValid(modelID, voiceID string) bool {
	for _, voice := range ByModel(modelID) {
		if voice.Name == voiceID {
			return true
		}
	}

	return false
}

// Default returns the default voice for a model.
func Default(modelID string) string {
	if modelID == ModelSupertonic {
		return "F1"
	}

	return "af_heart"
}

// Languages returns the languages covered by a model's voices, sorted by
// language code.
func Languages(modelID string) []Language {
	seen := make(map[string]struct{})

	for _, voice := range ByModel(modelID) {
		seen[voice.Language] = struct{}{}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	languages := make([]Language, 0, len(codes))

	for _, code := range codes {
		names, known := languageNames[code]
		if !known {
			languages = append(languages, Language{Code: code, Name: code, NativeName: code})

			continue
		}

		languages = append(languages, Language{Code: code, Name: names[0], NativeName: names[1]})
	}

	return languages
}
