package prompt

import (
	"fmt"
	"strings"

	"scene-prompt-server/modules/common/media"
	"scene-prompt-server/modules/scene"
)

// persona - variant 별 전문가 역할 / 결과물 성격
type persona struct {
	Expert    string // develop 용 전문가 역할
	Medium    string // "video" / "gambar"
	Character string // 문단 성격 (sinematik / visual)
	Example   string // compose 용 예시 문단 (few-shot)
}

var personas = map[scene.Variant]persona{
	scene.Video: {
		Expert:    "seorang sutradara dan penulis skenario ahli",
		Medium:    "video",
		Character: "kaya, deskriptif, dan sinematik",
		Example:   "Sebuah video sinematik 4K, gerakan kamera panning lambat, menunjukkan seorang wanita pejuang tua dari suku pedalaman Indonesia dengan wajah penuh keriput dan tatapan bijak, mengenakan pakaian tradisional dan hiasan kepala bulu, berdiri sendirian di puncak gunung saat matahari terbit, cahaya keemasan menyinari kabut di lembah di bawahnya, menciptakan suasana yang mistis dan tenang, diiringi suara angin lembut dan musik etnik yang samar.",
	},
	scene.Image: {
		Expert:    "seorang fotografer dan seniman digital ahli",
		Medium:    "gambar",
		Character: "kaya, deskriptif, dan visual",
		Example:   "Fotografi potret ultra-realistis, close-up, seorang astronot dengan pakaian antariksa putih yang usang sedang duduk santai di kursi pantai di Mars, memegang segelas minuman biru neon, helmnya tergeletak di pasir merah di sebelahnya, menunjukkan wajah lelah namun puas, dengan dua bulan Phobos dan Deimos terlihat di langit jingga yang gelap. Pencahayaan dramatis dari samping, gaya sinematik, kualitas 8K, detail tinggi.",
	},
}

func personaFor(v scene.Variant) persona {
	if p, ok := personas[v]; ok {
		return p
	}
	return personas[scene.Video]
}

// DevelopShape - develop 응답 shape (모든 스키마 필드 + promptIdea)
func DevelopShape(v scene.Variant, requireIdea bool) *Shape {
	shape := &Shape{}
	shape.Properties = append(shape.Properties, Property{
		Name:     PromptIdeaField,
		Type:     "string",
		Hint:     "Ide prompt singkat dalam satu kalimat berdasarkan gambar.",
		Required: requireIdea,
	})
	for _, f := range scene.SchemaFor(v).Fields {
		shape.Properties = append(shape.Properties, Property{
			Name: f.Name,
			Type: "string",
			Hint: f.Hint,
			Enum: f.Enum,
		})
	}
	return shape
}

// BuildDevelopFromIdea - 한 문장 아이디어를 전체 필드로 확장
func BuildDevelopFromIdea(idea string, v scene.Variant) *Request {
	p := personaFor(v)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Anda adalah %s. ", p.Expert))
	b.WriteString(fmt.Sprintf("Berdasarkan ide singkat ini: %q, kembangkan menjadi detail prompt %s yang lengkap. ", idea, p.Medium))
	b.WriteString("Isi semua kolom dalam format JSON yang diminta dengan kreatif dan detail. Pastikan semua field terisi.")
	if v == scene.Image {
		b.WriteString(fmt.Sprintf(" Untuk %q pilih salah satu dari: %s.", scene.FieldAspectRatio, strings.Join(scene.AspectRatios, ", ")))
	}

	return &Request{
		Operation:   OpDevelopFromIdea,
		Instruction: b.String(),
		Shape:       DevelopShape(v, false),
	}
}

// BuildDevelopFromImage - 첨부 이미지를 분석해 전체 필드 + promptIdea 생성
func BuildDevelopFromImage(payload *media.Payload, v scene.Variant) *Request {
	p := personaFor(v)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Anda adalah %s. ", p.Expert))
	b.WriteString("Analisis gambar yang diberikan secara mendalam. ")
	b.WriteString(fmt.Sprintf("Berdasarkan analisis Anda, buatlah ide prompt %s yang lengkap dan detail. ", p.Medium))
	b.WriteString(fmt.Sprintf("Isi semua kolom dalam format JSON yang diminta, termasuk %q yang merupakan ringkasan singkat dari adegan dalam gambar. ", PromptIdeaField))
	b.WriteString("Pastikan semua field terisi secara kreatif dan relevan dengan gambar.")
	if v == scene.Image {
		b.WriteString(fmt.Sprintf(" Untuk %q pilih salah satu dari: %s.", scene.FieldAspectRatio, strings.Join(scene.AspectRatios, ", ")))
	}

	return &Request{
		Operation:   OpDevelopFromImage,
		Instruction: b.String(),
		Image:       payload,
		Shape:       DevelopShape(v, true),
	}
}

// BuildComposeParagraph - 필드 데이터를 인도네시아어 문단 하나로
func BuildComposeParagraph(d scene.Descriptor) *Request {
	p := personaFor(d.Variant())

	var b strings.Builder
	b.WriteString("Anda adalah seorang penulis prompt AI generatif yang ahli. ")
	b.WriteString(fmt.Sprintf("Ubah data JSON terstruktur berikut menjadi sebuah paragraf prompt %s yang %s dalam Bahasa Indonesia. ", p.Medium, p.Character))
	b.WriteString("Gabungkan semua elemen secara alami untuk menciptakan visi yang jelas dan menarik.\n\n")
	b.WriteString("Data JSON:\n")
	b.WriteString(d.Pretty())
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Contoh output: %q\n\n", p.Example))
	b.WriteString("Hasilkan prompt berdasarkan data yang diberikan.")

	return &Request{
		Operation:   OpComposeParagraph,
		Instruction: b.String(),
	}
}

// BuildTranslate - 문단 영어 번역
// protectedPhrase 가 있으면 해당 문구는 원문 그대로 유지하도록 지시
func BuildTranslate(source, protectedPhrase string) *Request {
	var b strings.Builder
	if strings.TrimSpace(protectedPhrase) != "" {
		b.WriteString("Translate the following Indonesian text to English. ")
		b.WriteString("It is very important that you DO NOT translate the specific phrase enclosed in double quotes below; ")
		b.WriteString("it must appear in the output exactly as written, in its original Indonesian.\n")
		b.WriteString(fmt.Sprintf("Indonesian Text: \"%s\"\n", source))
		b.WriteString(fmt.Sprintf("Phrase to keep in Indonesian: \"%s\"", protectedPhrase))
	} else {
		b.WriteString(fmt.Sprintf("Translate the following Indonesian text to English: \"%s\"", source))
	}

	return &Request{
		Operation:   OpTranslate,
		Instruction: b.String(),
	}
}

// BuildStructuredListing - "Label: value" 줄 형식 영어 목록
func BuildStructuredListing(d scene.Descriptor) *Request {
	var b strings.Builder
	b.WriteString("You are an expert translator. Translate both the keys and the values of the following JSON object from Indonesian to English. ")
	b.WriteString("Format the final output as a human-readable string where each key-value pair is on a new line, like \"Key: Value\", keeping the order of the keys. ")
	b.WriteString("Do not include keys that have empty strings or null as their value.\n\n")
	b.WriteString("Field labels:\n")
	for _, f := range d.Schema().Fields {
		b.WriteString(fmt.Sprintf("- %s: %s\n", f.Name, f.Label))
	}
	b.WriteString("\nJSON Data:\n")
	b.WriteString(d.Pretty())
	b.WriteString("\n\nExample output format:\n")
	b.WriteString("Subject: An old warrior woman from an Indonesian tribe...\n")
	b.WriteString("Action: Standing alone on a mountain peak...\n")
	if d.Variant() == scene.Video {
		b.WriteString("Camera Movement: Slow panning shot\n")
	} else {
		b.WriteString("Camera: Canon EOS R5, 50mm f/1.8\n")
	}
	b.WriteString("\nTranslate the provided JSON data into this format.")

	return &Request{
		Operation:   OpStructuredListing,
		Instruction: b.String(),
	}
}

// BuildStructuredJSON - camelCase 영어 키/값 JSON
func BuildStructuredJSON(d scene.Descriptor) *Request {
	var b strings.Builder
	b.WriteString("You are an expert translator and data formatter. ")
	b.WriteString("Translate both the keys (into camelCase) and the values of the following JSON object from Indonesian to English. ")
	b.WriteString("The output MUST be a valid JSON object. ")
	b.WriteString("Do not include keys in the final JSON if their original values are empty strings or null.\n\n")
	b.WriteString("JSON Data:\n")
	b.WriteString(d.Pretty())

	return &Request{
		Operation:   OpStructuredJSON,
		Instruction: b.String(),
		Shape:       &Shape{},
	}
}

// storyActs - 5막 구성 (3막 = 입력 장면)
var storyActs = []struct {
	Heading string
	Body    string
}{
	{"Scene 1: Exposition/Inciting Incident", "What events led up to this moment? Introduce the characters and the setting, and present the initial conflict or goal."},
	{"Scene 2: Rising Action", "Describe the events immediately preceding the main scene. Build tension and anticipation. What obstacles did the characters face?"},
	{"Scene 3: The Main Scene (Climax)", "Describe the main scene in rich, cinematic detail based on the provided JSON data. This is the turning point of the story."},
	{"Scene 4: Falling Action", "What happens immediately after the climax? Describe the direct consequences, the emotional fallout, and the immediate next steps."},
	{"Scene 5: Resolution", "What is the final outcome? Show the new state of affairs for the characters and their world. Provide a sense of closure."},
}

// SpokenPhraseClause - 대사 보존 지시문
func SpokenPhraseClause(phrase string) string {
	return fmt.Sprintf("**CRITICAL INSTRUCTION:** The dialogue/spoken phrase in the JSON data (\"%s\") MUST remain in its original Indonesian language within the English storyline. DO NOT translate this specific phrase.", phrase)
}

// BuildStoryExpansion - 장면을 클라이맥스로 하는 5막 영어 스토리
func BuildStoryExpansion(d scene.Descriptor) *Request {
	var b strings.Builder
	b.WriteString("You are an expert screenwriter and creative writer. ")
	b.WriteString("Based on the following single scene data, expand it into a continuous five-act storyline in English. ")
	b.WriteString("This central scene should act as the story's climax.\n\n")
	b.WriteString("Your output must be structured with clear headings for each of the five scenes.\n\n")
	for _, act := range storyActs {
		b.WriteString(fmt.Sprintf("**%s:** %s\n\n", act.Heading, act.Body))
	}
	b.WriteString("Your response MUST be formatted exactly like this, with each scene clearly labeled with a heading and its description on a new line.\n\n")
	b.WriteString("JSON Data for the Main Scene:\n")
	b.WriteString(d.Pretty())
	b.WriteString("\n\nGenerate the continuous five-scene story prompt in English, following the specified format precisely.")

	if phrase := d.SpokenPhrase(); strings.TrimSpace(phrase) != "" {
		b.WriteString("\n\n")
		b.WriteString(SpokenPhraseClause(phrase))
	}

	return &Request{
		Operation:   OpStoryExpansion,
		Instruction: b.String(),
	}
}
