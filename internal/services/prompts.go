package services

import (
	"fmt"
	"strings"

	"technews/internal/models"
)

const summarySystemPrompt = `You are an expert analyst who summarizes technology news for specialists and decision makers. You deliver deep analysis, strategic insight and practical recommendations in %s.`

// The section headings must stay in sync with aitext.SectionFor
const summaryPromptTemplate = `Analyze the following article and write a complete digest.

Title: %s
Source: %s
Category: %s
Content: %s

Answer in %s using exactly this structure. Keep the "## " headings in English, write everything else in the target language:

## Summary Title
[a clear, engaging title that captures the essence of the story]

## Executive Summary
[4 to 6 lines covering the essential points in a professional tone]

## Key Points
• [the most important development or announcement]
• [a new technology or product]
• [impact on the market or industry]
• [reactions or analysis]

## Strategic Analysis
**Opportunities:**
- [how this development can be used]
- [practical applications in the market]

**Risks:**
- [potential challenges]
- [impact on existing businesses]

## Recommendations
**For startups:**
[practical advice for small and medium companies]

**For enterprises:**
[advice for large organizations]

**For investors:**
[investment advice based on the story]

## KPIs
- [how to measure success in this area]
- [important evaluation criteria]

## Expected Timeline
**Short term (3-6 months):** [expected developments]
**Mid term (6-12 months):** [market direction]
**Long term (1-2 years):** [future outlook]

The digest must be strategic and actionable, focused on practical value, grounded in the article and direct.`

const tagSystemPrompt = `You are an expert in analyzing technology content and extracting keywords in %s. You identify the important technical concepts in articles.`

const tagPromptTemplate = `Analyze the following article and extract the most relevant keywords and tags.

Title: %s
Category: %s
Content: %s

Return between 3 and 8 tags in %s, one tag per line and nothing else. Tags must be accurate, cover the main technical aspects, suit specialists and decision makers, and be short (one or two words).`

const insightSystemPrompt = `You are an expert in analyzing technology content and providing strategic insight to specialists and decision makers. You turn complex technical information into actionable insight written in %s.`

const insightPromptTemplate = `Analyze the following technology article and provide in-depth insight for specialists and decision makers.

Title: %s
Summary: %s
Original content: %s
Category: %s
Source: %s
Tags: %s

Cover trends, impact, opportunities and risks. Reply with a single JSON object of this shape, with all text values in %s:
{
  "trend": {"title": "...", "description": "...", "confidence": 0.8},
  "impact": {"title": "...", "description": "...", "confidence": 0.7},
  "opportunity": {"title": "...", "description": "...", "confidence": 0.6},
  "risk": {"title": "...", "description": "...", "confidence": 0.5},
  "keyInsights": ["...", "...", "..."],
  "recommendations": ["...", "...", "..."],
  "targetAudience": ["...", "..."],
  "timeHorizon": "short|medium|long",
  "overallConfidence": 0.7
}`

func categoryName(a *models.Article, fallback string) string {
	if a.Category != nil && a.Category.Name != "" {
		return a.Category.Name
	}
	return fallback
}

func summaryPrompt(a *models.Article, body, language string) string {
	return fmt.Sprintf(summaryPromptTemplate, a.Title, a.Source.Name, categoryName(a, "Technology"), body, language)
}

func tagPrompt(a *models.Article, content, language string) string {
	return fmt.Sprintf(tagPromptTemplate, a.Title, categoryName(a, "Uncategorized"), content, language)
}

func insightPrompt(a *models.Article, summary, body, language string) string {
	return fmt.Sprintf(insightPromptTemplate, a.Title, summary, body,
		categoryName(a, "Uncategorized"), a.Source.Name, strings.Join(a.TagNames(), ", "), language)
}
