package openai

import "fmt"

const structuringResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "title": {
      "type": "string"
    },
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "heading": {
            "type": "string"
          },
          "text": {
            "type": "string"
          }
        },
        "required": ["heading", "text"],
        "additionalProperties": false
      }
    }
  },
  "required": ["title", "sections"],
  "additionalProperties": false
}`

const structuringSystemPrompt = `You analyze web articles and output a single JSON object describing them.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

` + structuringResponseSchema + `

Rules:
- The title is the article's own title; use an empty string if none can be identified.
- Split the body into its natural sections, in reading order. Use an empty heading for lead paragraphs.
- Preserve the article's text faithfully inside each section; do not summarize or rewrite it.
- Do not invent sections or text that is not present in the input.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`

// buildStructuringPrompt formats the user message for article structuring.
func buildStructuringPrompt(url, text string) string {
	return fmt.Sprintf("Article URL: %s\nArticle content:\n\"\"\"%s\"\"\"\n\nOutput only the JSON.", url, text)
}

const answerSystemPrompt = `Answer the question using only the provided contexts. If the contexts do not contain the answer, say so.`

// buildAnswerPrompt formats the user message for answer generation.
func buildAnswerPrompt(question, contextBlock string) string {
	return fmt.Sprintf("Use the following contexts to answer the question.\n%s\n\nQuestion: %s\nAnswer:", contextBlock, question)
}
