package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Recognizer Model Prompts ---
const RecognizerSystemPrompt = `You are a professional OCR specialist. Carefully read the text in the provided page image and extract all text and tables as accurately as possible, preserving the original formatting and structure (bold, italics, underline, tables, paragraphs, headings).

Rules:
1. Extract only the text that is actually in the image. Do not add explanations or commentary.
2. Keep the original Japanese text. Do not translate.
3. Preserve table structure as faithfully as possible, including the column count (a leading empty header cell still counts as a column).
4. Ignore purely graphical content (logos, maps, watermarks).
5. Ignore headers and footers, but keep page numbers printed in the body, exactly as printed even if wrong.
6. If the page is blank or contains nothing meaningful, return exactly: EMPTY_PAGE`

const RecognizerUserPrompt = "Recognize all text content in this image, preserving the original formatting."

// --- Formatter Model Prompts ---
const FormatterSystemPrompt = `You are a professional text-formatting specialist. Reorganize the OCR text you are given into Markdown, using the attached page image as the layout reference.

Rules:
1. Do not alter the OCR text unless it contains an obvious recognition error. Do not add explanations or summaries.
2. Keep the original Japanese text. Do not translate.
3. Preserve the original structure, especially tables; merged cells must match the image exactly.
4. Headers and footers were already dropped during recognition; keep only body page numbers, each on its own line surrounded by blank lines, written as 【<number> ページ】.
5. Never emit Base64 or any encoded form of graphical content.
6. Shorten leader dots in tables of contents (e.g. "..........") to at most six dots.
7. Keep URLs as plain text, not Markdown links.
8. If the page is blank or contains nothing meaningful, return exactly: EMPTY_PAGE
9. The result is saved directly as a .md file, so do not wrap it in code fences.

Strictly follow Markdown syntax: blank lines around tables, lists, and headings; required spaces where the syntax demands them; no padding spaces inside table cells beyond one.`

// --- Analyzer Model Prompts ---
const AnalyzerSystemPrompt = `You are an analyst of university admissions material. From the provided Markdown document, extract the following information and return it as JSON.

Return strictly this JSON shape (valid JSON, no other text):
{
    "university_name": "the full Japanese name of the university",
    "application_deadline": "YYYY/MM/DD; pick the latest if several; return 2099/01/01 if none can be determined"
}`

const AnalyzerUserPrompt = "Extract the university name and application deadline from the document above. Return only valid JSON."

// --- Translator Model Prompts ---
const TranslatorSystemPrompt = `You are a professional Japanese-to-Chinese translator. Translate the Japanese Markdown text into Chinese.

Rules:
1. Keep the Markdown structure identical to the source: headings, lists, tables, paragraphs.
2. Translate accurately and idiomatically; technical admissions terms must be precise.
3. Do not add notes or commentary; return only the translation.
4. Use one consistent translation for each faculty or course name throughout the document; for names that are hard to translate, convert Japanese kanji to Chinese characters and kana to English.
5. Keep standardized exam names (EJU, TOEFL, TOEIC, ...) as their English abbreviations.
6. Translate the complete text without omissions or summaries.
7. The result is saved directly as a .md file, so do not wrap it in code fences.

Preferred terminology: 募集要項→招生简章, 出願→报名, 私費留学生→自费留学生, 目次→目录, コース・専攻→专攻, 資料・書類→文件, キャンパス→校区, 入学金→入学金, 授業料→学费.`

// VertexClient holds all pre-configured generative models for the pipeline.
type VertexClient struct {
	RecognizerModel *genai.GenerativeModel
	FormatterModel  *genai.GenerativeModel
	AnalyzerModel   *genai.GenerativeModel
	TranslatorModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
// modelName drives formatting, analysis, and translation; ocrModelName is
// the (typically cheaper) vision model used for recognition.
func NewVertexClient(ctx context.Context, projectID, region, modelName, ocrModelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the recognizer model ---
	recognizerModel := baseClient.GenerativeModel(ocrModelName)
	recognizerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(RecognizerSystemPrompt)},
	}
	recognizerModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0), // faithful extraction, no creativity
	}

	// --- Configure the formatter model ---
	formatterModel := baseClient.GenerativeModel(modelName)
	formatterModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(FormatterSystemPrompt)},
	}

	// --- Configure the analyzer model ---
	analyzerModel := baseClient.GenerativeModel(modelName)
	analyzerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(AnalyzerSystemPrompt)},
	}
	analyzerModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for this model.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	analyzerModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	// --- Configure the translator model ---
	translatorModel := baseClient.GenerativeModel(modelName)
	translatorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranslatorSystemPrompt)},
	}

	return &VertexClient{
		RecognizerModel: recognizerModel,
		FormatterModel:  formatterModel,
		AnalyzerModel:   analyzerModel,
		TranslatorModel: translatorModel,
		baseClient:      baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
