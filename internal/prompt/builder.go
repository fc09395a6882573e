// Package prompt renders the instruction text handed to the coding agent.
package prompt

import (
	"fmt"
	"strings"
)

// TemplateVersion identifies the prompt template. Bump it whenever the
// wording of the agent protocol changes.
const TemplateVersion = 2

// Protocol tags the agent is told to emit. They must match the sentinel scanner.
const (
	doneTag         = "<status>done</status>"
	summaryOpenTag  = "<summary>"
	summaryCloseTag = "</summary>"
)

// IgnoredDirectories lists folders the agent is told never to scan.
var IgnoredDirectories = []string{
	"node_modules",
	".venv",
	"venv",
	".git",
	"dist",
	"build",
	"vendor",
	".next",
	"target",
	"__pycache__",
}

// Options are the inputs of a task prompt. ID and Title are required.
type Options struct {
	ID              *int
	Title           string
	Description     string
	Plan            string
	ProgressContext string
}

// Build returns the execution prompt for one task.
// It panics when ID is nil or Title is blank; callers validate tasks first.
func Build(opts Options) string {
	if opts.ID == nil {
		panic("prompt: id is required")
	}
	if strings.TrimSpace(opts.Title) == "" {
		panic("prompt: title is required")
	}

	var sb strings.Builder

	sb.WriteString("You are an autonomous coding agent.\n")
	sb.WriteString("You must complete the following requirement.\n\n")

	sb.WriteString("## Requirement\n")
	sb.WriteString(fmt.Sprintf("ID: %d\n", *opts.ID))
	sb.WriteString(fmt.Sprintf("Title: %s\n", opts.Title))
	sb.WriteString(fmt.Sprintf("Description: %s\n", opts.Description))
	sb.WriteString(fmt.Sprintf("Plan: %s\n\n", opts.Plan))

	sb.WriteString("## Progress\n")
	sb.WriteString("Notes from previous iterations. Empty on the first run.\n")
	sb.WriteString(opts.ProgressContext)
	sb.WriteString("\n\n")

	sb.WriteString("## Instructions\n")
	sb.WriteString("- Analyze the requirement thoroughly\n")
	sb.WriteString("- You have full permission to edit files and run commands without asking\n")
	sb.WriteString("- Make all decisions autonomously. Do NOT ask for clarification, opinions, or confirmation\n")
	sb.WriteString("- Read the provided Plan and turn it into a step by step execution plan\n")
	sb.WriteString("- Implement the requirement completely\n")
	sb.WriteString(fmt.Sprintf("- Never read large or git-ignored folders such as %s\n\n",
		strings.Join(IgnoredDirectories, ", ")))

	sb.WriteString("## Completion\n")
	sb.WriteString("When the requirement is fully implemented and working, respond with exactly:\n")
	sb.WriteString(doneTag + "\n")
	sb.WriteString("Then optionally add a plain-text summary of key decisions and important notes, without code or commands:\n")
	sb.WriteString(summaryOpenTag + "\n")
	sb.WriteString("...\n")
	sb.WriteString(summaryCloseTag + "\n\n")

	sb.WriteString("Begin implementation now.\n")

	return sb.String()
}

// BuildPlan returns the read-only planning prompt for the whole backlog.
// It panics when backlogJSON is blank.
func BuildPlan(backlogJSON string) string {
	if strings.TrimSpace(backlogJSON) == "" {
		panic("prompt: backlog document is required")
	}

	var sb strings.Builder

	sb.WriteString("You are a software architect and planning specialist. ")
	sb.WriteString("Explore the codebase and write a step by step implementation plan for each backlog item.\n\n")

	sb.WriteString("=== READ-ONLY MODE ===\n")
	sb.WriteString("You MUST NOT create, edit, or delete any files. ")
	sb.WriteString("Only read-only commands are allowed: ls, grep, find, cat, head, tail, git status, git log, git diff.\n\n")

	sb.WriteString("## Process\n")
	sb.WriteString("1. Understand all backlog items as a whole, but plan each one individually\n")
	sb.WriteString("2. Explore existing patterns and conventions. An empty directory means a fresh project\n")
	sb.WriteString("3. Give priority to files referenced by an item or its attachments\n")
	sb.WriteString("4. Describe the implementation steps, their ordering, and likely challenges\n\n")

	sb.WriteString("## Backlog\n")
	sb.WriteString("```json\n")
	sb.WriteString(strings.TrimSpace(backlogJSON))
	sb.WriteString("\n```\n\n")

	sb.WriteString("## Required Output\n")
	sb.WriteString("Output a single JSON object keyed by backlog item id, wrapped in plan_json tags:\n")
	sb.WriteString("<plan_json>\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"0\": \"plan details for id 0\",\n")
	sb.WriteString("  \"1\": \"plan details for id 1\"\n")
	sb.WriteString("}\n")
	sb.WriteString("</plan_json>\n")

	return sb.String()
}
