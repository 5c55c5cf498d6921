package scene

import (
	"fmt"
	"strings"
)

// Variant - 프롬프트 도메인 (video / image)
type Variant string

const (
	Video Variant = "video"
	Image Variant = "image"
)

// Field names
const (
	FieldSubject        = "subjek"
	FieldAge            = "usia"
	FieldSkinTone       = "warnaKulit"
	FieldFace           = "wajah"
	FieldHair           = "rambut"
	FieldClothing       = "pakaian"
	FieldOrigin         = "asal"
	FieldAccessories    = "asesoris"
	FieldAction         = "aksi"
	FieldExpression     = "ekspresi"
	FieldPlace          = "tempat"
	FieldTime           = "waktu"
	FieldLighting       = "pencahayaan"
	FieldExtraDetail    = "detailTambahan"
	FieldNegativePrompt = "negativePrompt"

	// video 전용
	FieldCameraMovement = "gerakanKamera"
	FieldVideoStyle     = "gayaVideo"
	FieldVideoQuality   = "kualitasVideo"
	FieldVideoMood      = "suasanaVideo"
	FieldSoundMusic     = "suaraMusik"
	FieldSpokenPhrase   = "kalimatDiucapkan"

	// image 전용
	FieldCamera       = "kamera"
	FieldImageStyle   = "gaya"
	FieldImageQuality = "kualitasGambar"
	FieldImageMood    = "suasanaGambar"
	FieldAspectRatio  = "aspekRasio"
)

// AspectRatios - aspekRasio 허용값
var AspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4"}

// Field - 필드 정의
type Field struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Hint    string   `json:"hint,omitempty"`
	Default string   `json:"default"`
	Enum    []string `json:"enum,omitempty"`
}

// Allows - Enum 필드인 경우 허용값 여부
func (f Field) Allows(value string) bool {
	if len(f.Enum) == 0 {
		return true
	}
	for _, v := range f.Enum {
		if v == value {
			return true
		}
	}
	return false
}

// Schema - variant 별 필드 목록 (표시 순서)
type Schema struct {
	Variant Variant `json:"variant"`
	Fields  []Field `json:"fields"`
	index   map[string]int
}

// 공통 앞부분 필드 (인물/장소/시간/조명)
var baseHead = []Field{
	{Name: FieldSubject, Label: "Subjek", Hint: "Karakter atau objek utama."},
	{Name: FieldAction, Label: "Aksi", Hint: "Aktivitas yang sedang dilakukan subjek."},
	{Name: FieldPlace, Label: "Tempat", Hint: "Lokasi atau latar belakang."},
	{Name: FieldClothing, Label: "Pakaian", Hint: "Pakaian yang dikenakan."},
	{Name: FieldAccessories, Label: "Asesoris", Hint: "Perhiasan, topi, senjata, atau benda yang dibawa."},
	{Name: FieldExpression, Label: "Ekspresi", Hint: "Ekspresi wajah dan emosi subjek."},
	{Name: FieldHair, Label: "Rambut", Hint: "Gaya dan warna rambut."},
	{Name: FieldFace, Label: "Wajah", Hint: "Deskripsi detail wajah subjek."},
	{Name: FieldAge, Label: "Usia", Hint: "Usia subjek."},
	{Name: FieldSkinTone, Label: "Warna Kulit", Hint: "Warna kulit subjek."},
	{Name: FieldOrigin, Label: "Asal (Negara)", Hint: "Asal negara atau etnisitas subjek."},
	{Name: FieldTime, Label: "Waktu", Hint: "Waktu (pagi, malam, golden hour, dll)."},
	{Name: FieldLighting, Label: "Pencahayaan", Hint: "Contoh: cinematic lighting, rim light, neon glow."},
}

// 공통 뒷부분 필드
var baseTail = []Field{
	{Name: FieldExtraDetail, Label: "Detail Tambahan", Hint: "Detail penting lainnya."},
	{Name: FieldNegativePrompt, Label: "Negative Prompt (Otomatis)", Hint: "Hal-hal yang harus dihindari. Contoh: blurry, low quality, deformed hands."},
}

var videoExtras = []Field{
	{Name: FieldCameraMovement, Label: "Gerakan Kamera", Hint: "Contoh: tracking shot, panning, dolly zoom."},
	{Name: FieldVideoStyle, Label: "Gaya Video", Hint: "Contoh: hyper-realistic, anime, fantasy, documentary."},
	{Name: FieldVideoQuality, Label: "Kualitas Video", Hint: "Contoh: 4K, 8K, highly detailed.", Default: "Ultra HD 4K"},
	{Name: FieldVideoMood, Label: "Suasana Video", Hint: "Contoh: mystical, tense, joyful, futuristic."},
	{Name: FieldSoundMusic, Label: "Suara atau Musik", Hint: "Deskripsi efek suara atau musik latar."},
	{Name: FieldSpokenPhrase, Label: "Kalimat yang Diucapkan", Hint: "Jika ada dialog, tulis di sini."},
}

var imageExtras = []Field{
	{Name: FieldCamera, Label: "Kamera", Hint: "Tipe kamera/lensa. Contoh: Canon EOS R5, 50mm f/1.8."},
	{Name: FieldImageStyle, Label: "Gaya", Hint: "Contoh: photorealistic, watercolor, digital art."},
	{Name: FieldImageQuality, Label: "Kualitas Gambar", Hint: "Contoh: 8K, highly detailed, sharp focus.", Default: "Fotorealistis, detail tinggi, 8k"},
	{Name: FieldImageMood, Label: "Suasana Gambar", Hint: "Contoh: dreamy, dramatic, serene."},
}

var aspectRatioField = Field{
	Name:    FieldAspectRatio,
	Label:   "Aspek Rasio",
	Hint:    "Rasio aspek gambar.",
	Default: "1:1",
	Enum:    AspectRatios,
}

var schemas = map[Variant]Schema{
	Video: newSchema(Video, baseHead, videoExtras, baseTail),
	Image: newSchema(Image, baseHead, imageExtras, baseTail, []Field{aspectRatioField}),
}

func newSchema(v Variant, groups ...[]Field) Schema {
	s := Schema{Variant: v, index: make(map[string]int)}
	for _, group := range groups {
		for _, f := range group {
			s.index[f.Name] = len(s.Fields)
			s.Fields = append(s.Fields, f)
		}
	}
	return s
}

// SchemaFor - variant 의 필드 스키마
func SchemaFor(v Variant) Schema {
	s, ok := schemas[v]
	if !ok {
		return schemas[Video]
	}
	return s
}

// Names - 필드 이름 (표시 순서)
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

func (s Schema) Label(name string) string {
	if f, ok := s.Field(name); ok {
		return f.Label
	}
	return name
}

// ParseVariant - "video"/"veo", "image"/"imagen" 허용
func ParseVariant(raw string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "video", "veo":
		return Video, nil
	case "image", "imagen":
		return Image, nil
	}
	return "", fmt.Errorf("unknown variant: %q", raw)
}
