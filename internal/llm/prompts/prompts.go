// Package prompts builds the system and user prompts for question drafting.
package prompts

import (
	"fmt"
	"strings"
)

// DraftSystem is the system prompt for drafting one quiz question about a
// code snippet from a student submission.
func DraftSystem(language string) string {
	var sb strings.Builder
	sb.WriteString("You are helping a course instructor write a personalized quiz question ")
	sb.WriteString("about a code snippet taken from a student's own submission.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Ask about what the code does or why it is written this way, not about trivia.\n")
	sb.WriteString("- The student wrote this code; the question checks they understand their own work.\n")
	sb.WriteString("- Keep the question short enough to answer in a few sentences.\n")
	if language != "" {
		fmt.Fprintf(&sb, "- The snippet is %s code.\n", language)
	}
	sb.WriteString("\nRespond ONLY with a JSON object with these fields:\n")
	sb.WriteString(`{"question": "<the question text>", "answer": "<a model answer for the instructor>"}`)
	sb.WriteString("\n")
	return sb.String()
}

// DraftUser wraps the snippet for the drafting conversation. Guidance is
// optional instructor steering ("focus on the loop bounds").
func DraftUser(code, guidance string) string {
	var sb strings.Builder
	sb.WriteString("Write one quiz question about this code:\n\n")
	sb.WriteString("```\n")
	sb.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
	if guidance != "" {
		sb.WriteString("\nInstructor guidance: " + guidance + "\n")
	}
	return sb.String()
}

// RephraseSystem is the system prompt for rewording an existing question
// without changing what it tests.
func RephraseSystem() string {
	var sb strings.Builder
	sb.WriteString("You are helping a course instructor reword a quiz question.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Keep the meaning and difficulty unchanged; improve clarity and tone.\n")
	sb.WriteString("- Do not add new requirements or drop existing ones.\n")
	sb.WriteString("\nRespond ONLY with a JSON object with these fields:\n")
	sb.WriteString(`{"question": "<the reworded question>", "answer": ""}`)
	sb.WriteString("\n")
	return sb.String()
}

// RephraseUser wraps the question (and its snippet, when available) for the
// rephrase conversation.
func RephraseUser(question, code string) string {
	var sb strings.Builder
	sb.WriteString("Reword this question:\n\n" + question + "\n")
	if code != "" {
		sb.WriteString("\nIt refers to this code:\n\n```\n")
		sb.WriteString(code)
		if !strings.HasSuffix(code, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n")
	}
	return sb.String()
}
