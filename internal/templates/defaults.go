package templates

import "github.com/hyperscribe/backend/internal/notes"

// DefaultTemplate is a system template seeded with no owning user.
type DefaultTemplate struct {
	Name        string
	Description string
	Content     string
	Category    notes.Category
}

// DefaultTemplates lists the system templates seeded at startup.
func DefaultTemplates() []DefaultTemplate {
	return []DefaultTemplate{
		{
			Name:        "Blank Note",
			Description: "A simple blank note for general use.",
			Content:     "",
			Category:    notes.CategoryCustom,
		},
		{
			Name:        "Meeting Notes",
			Description: "Template for taking notes during meetings with sections for agenda, decisions, and action items.",
			Content: "# Meeting: {{title}}\nDate: {{date}}\n\n## Attendees\n- \n\n## Agenda\n- \n\n" +
				"## Notes\n- \n\n## Decisions\n- \n\n## Action Items\n- [ ] \n- [ ] \n",
			Category: notes.CategoryCustom,
		},
		{
			Name:        "Brain Dump",
			Description: "Quick capture of thoughts and ideas without structure.",
			Content: "# Brain Dump: {{date}}\n\n## Thoughts\n- \n\n## Ideas\n- \n\n" +
				"## Questions\n- \n\n## Random Musings\n- \n",
			Category: notes.CategoryBrainDump,
		},
		{
			Name:        "To-Do List",
			Description: "Structured template for creating and tracking tasks.",
			Content: "# To-Do List: {{date}}\n\n## High Priority\n- [ ] \n- [ ] \n\n" +
				"## Medium Priority\n- [ ] \n- [ ] \n\n## Low Priority\n- [ ] \n- [ ] \n",
			Category: notes.CategoryToDo,
		},
		{
			Name:        "Journal Entry",
			Description: "Daily journal with prompts for reflection.",
			Content: "# Journal: {{date}}\n\n## How I'm feeling today\n\n\n## What happened\n\n\n" +
				"## What I'm grateful for\n- \n\n## Tomorrow\n- \n",
			Category: notes.CategoryJournal,
		},
		{
			Name:        "Mood Tracker",
			Description: "Track mood, energy, and the factors behind them.",
			Content: "# Mood Check-In: {{date}}\n\n## Mood (1-10)\n\n\n## Energy (1-10)\n\n\n" +
				"## What influenced it\n- \n\n## One small win\n- \n",
			Category: notes.CategoryMoodTracking,
		},
	}
}
