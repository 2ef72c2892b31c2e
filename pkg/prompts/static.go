// Package prompts holds the model prompt templates for each pipeline
// stage. Every template demands a single JSON object reply so the
// parser layer can extract it without scraping prose.
package prompts

// TaskAnalysisTemplate asks the model to turn a natural-language task
// into the structured task form. Placeholders: url, task description.
const TaskAnalysisTemplate = `Analyze this web automation task and extract structured information.

URL: %s
Task: %s

Please analyze this task and provide a JSON response with the following structure:
{
    "description": "The original task description",
    "objectives": ["List of main objectives to accomplish"],
    "success_criteria": ["List of criteria that determine success"],
    "data_to_extract": ["Optional list of data to extract"] or null,
    "actions_to_perform": ["Optional list of actions like click, fill, submit"] or null,
    "constraints": ["List of constraints or limitations"],
    "context": {"any": "additional context as key-value pairs"}
}

Important:
- objectives and success_criteria must have at least one item each
- data_to_extract and actions_to_perform can be null if not applicable
- constraints can be an empty list if there are none
- context should be an empty object {} if no additional context is needed

Return only the JSON object, no additional text.`

// TaskAnalysisCompactTemplate is the short form of TaskAnalysisTemplate,
// used when the full prompt would overflow the token budget.
// Placeholders: url, task description.
const TaskAnalysisCompactTemplate = `Analyze this web automation task.

URL: %s
Task: %s

Reply with one JSON object: {"description": string, "objectives": [string],
"success_criteria": [string], "data_to_extract": [string] or null,
"actions_to_perform": [string] or null, "constraints": [string], "context": {}}.
objectives and success_criteria need at least one item each.

Return only the JSON object, no additional text.`

// PageAnalysisTemplate asks the model to analyze a cleaned page snapshot.
// The section guidance keeps the model focused on what plans need:
// classification, content, selectors, extractable data, and actions.
// Placeholders: url, cleaned HTML.
const PageAnalysisTemplate = `Analyze the following web page. The content is cleaned HTML that preserves semantic structure and key targeting attributes.

URL: %s

Page HTML (cleaned, with semantic structure and targeting attributes):
` + "```html\n%s\n```" + `

Work through these aspects:
1. PAGE TYPE: Identify the type of page (login, search, listing, article, form, checkout, ...) based on the HTML structure
2. MAIN CONTENT: Summarize the page's main purpose in one or two sentences
3. KEY ELEMENTS: List the important interactive elements with CSS selectors (prefer id, name, and data-* attributes)
4. DATA TO EXTRACT: Identify data on the page worth extracting (prices, titles, dates, counts)
5. INTERACTION OPPORTUNITIES: Identify the actions a visitor can take (navigation, form submission, clicking elements) with specific selectors

Then provide a JSON response with the following structure:
{
    "page_type": "One of the page types above, or your own classification",
    "summary": "The main content summary",
    "elements": [
        {
            "type": "button, link, input, select, or form",
            "selector": "CSS selector that locates the element",
            "text": "Visible text of the element, if any",
            "purpose": "What the element is for"
        }
    ],
    "insights": ["Observations relevant to automating this page, such as pagination or required login"],
    "confidence": 0.8
}

Important:
- Use selectors that appear in the HTML above, never invented ids
- confidence must be a number between 0 and 1
- elements can be an empty list if the page has no interactive elements

Return only the JSON object, no additional text.`

// PlanGenerationTemplate asks the model to produce an ordered execution
// plan from an analyzed task and page. Placeholders: task description,
// url, objectives, success criteria, constraints, data to extract, page
// type, page summary, element inventory, allowed action list.
const PlanGenerationTemplate = `Create a step-by-step browser automation plan for this task.

Task: %s
URL: %s

Objectives:
%s

Success criteria:
%s

Constraints:
%s

Data to extract:
%s

Page type: %s
Page summary: %s

Interactive elements on the page:
%s

Provide a JSON response with the following structure:
{
    "steps": [
        {
            "index": 1,
            "action": "navigate",
            "selector": "CSS selector of the target element, where the action needs one",
            "value": "URL for navigate, text for fill, milliseconds for a selector-less wait",
            "description": "What this step accomplishes",
            "fallbacks": ["Alternate CSS selectors to try if the primary fails"],
            "timeout_ms": 10000,
            "optional": false
        }
    ],
    "confidence": 0.8,
    "rationale": "Why this plan accomplishes the task"
}

Important:
- action must be one of: %s
- steps are executed in order and index starts at 1
- click, fill, extract, and download require a selector; use selectors from the element list above whenever possible
- navigate and fill require a value
- fallbacks and timeout_ms can be omitted; optional defaults to false
- mark a step optional only when the task can succeed without it
- confidence must be a number between 0 and 1

Return only the JSON object, no additional text.`
