package ai

import (
	"fmt"

	"github.com/hyperscribe/backend/internal/notes"
)

// noteAssistantPrompt is the base system prompt for every note operation.
const noteAssistantPrompt = `You are HyperScribe, an AI-powered note-taking assistant. Your purpose is to help users organize their thoughts, create structured notes, and manage their information effectively.

Key capabilities:
1. Help users create and organize notes using various templates
2. Suggest improvements to existing notes
3. Extract tasks and action items from notes
4. Summarize longer notes into concise overviews
5. Expand brief notes into more detailed content
6. Provide contextual recommendations based on note content

Be concise, clear, and helpful in your responses. Format information in a way that's easy to read and incorporate into notes.`

const summarizePrompt = `Summarize the following note content into a concise overview that captures the key points, main ideas, and any action items. Keep the summary clear, organized, and brief (around 3-5 bullet points or a short paragraph).

NOTE CONTENT:
`

const expandPrompt = `Expand the following note content with additional relevant details, examples, and context. Maintain the original structure and intent of the note, but enhance it with supportive content that makes it more comprehensive and valuable.

NOTE CONTENT:
`

const extractTasksTemplate = `Based on the following note content, generate a list of actionable tasks. Extract any explicit tasks mentioned, and also infer implicit tasks that would help accomplish what's in the note.

Note Title: %s
Note Content:
%s

Output ONLY a valid JSON array matching this exact schema:
[
  {"content": "<the task>", "priority": <0-3, 3 being highest>, "dueDate": "<YYYY-MM-DD or null>"}
]

Rules:
- Each task must be a clear, specific, actionable item
- Infer priority from urgency implied by the note; use 0 when nothing is implied
- Include a due date only when the note mentions one
- Output ONLY the JSON array, no markdown, no explanations`

// PromptForCategory returns the category-specific system prompt addition.
// The switch is exhaustive over the category enumeration.
func PromptForCategory(category notes.Category) string {
	switch category {
	case notes.CategoryBrainDump:
		return "For brain dump notes, help users organize free-flowing thoughts. Identify key themes, suggest categorizations, and help structure the unorganized content. Brain dumps are meant to capture thoughts quickly, but benefit from organizational structure afterward."
	case notes.CategoryJournal:
		return "For journal entries, adopt a supportive and reflective tone. Help users identify patterns in their experiences, suggest meaningful reflections, and provide prompts that encourage deeper exploration of their thoughts and feelings."
	case notes.CategoryToDo:
		return "For to-do lists, focus on task organization, prioritization, and actionability. Help users create clear, specific tasks with appropriate priorities. Suggest ways to break down complex tasks into manageable steps and identify dependencies between tasks."
	case notes.CategoryMoodTracking:
		return "For mood tracking, adopt a supportive tone that helps users reflect on their emotional patterns. Help identify factors that influence mood changes and suggest constructive ways to respond to emotional challenges."
	case notes.CategoryCustom:
		return "For custom templates, adapt to the specific structure and purpose of the template. Focus on helping users achieve their intended goals with the template while maintaining its original structure and purpose."
	}
	return ""
}

// SystemPrompt composes the assistant prompt, optionally specialized for
// a note category.
func SystemPrompt(category *notes.Category) string {
	if category == nil {
		return noteAssistantPrompt
	}
	return noteAssistantPrompt + "\n\n" + PromptForCategory(*category)
}

func extractTasksPrompt(title, content string) string {
	return fmt.Sprintf(extractTasksTemplate, title, content)
}
