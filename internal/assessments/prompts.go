package assessments

import "fmt"

const analysisPrompt = `You are a Certified Aging-in-Place Specialist (CAPS). Analyze the following images of a home.
Identify all potential accessibility hazards and safety risks for an older adult.
For each hazard, provide a clear, actionable modification recommendation.

Return your response as a JSON object with this structure:
{
  "hazards": [
    {
      "type": "string (e.g., 'trip hazard', 'poor lighting')",
      "severity": "low" | "medium" | "high",
      "location": "string (e.g., 'bathroom entrance')",
      "description": "string (detailed description)"
    }
  ],
  "recommendations": [
    {
      "title": "string (brief title)",
      "description": "string (detailed recommendation)",
      "priority": "low" | "medium" | "high",
      "estimatedCost": {
        "min": number,
        "max": number
      },
      "relatedSpecialty": "string (e.g., 'bathroom-modification')"
    }
  ]
}`

func visualizationPrompt(title, description string) string {
	return fmt.Sprintf(`Create a photorealistic "after" visualization showing this home modification:
%s

Description: %s

Make the modifications look professional and realistic.
Keep the overall style and lighting of the original image.
Show clearly what the improvement would look like.`, title, description)
}
