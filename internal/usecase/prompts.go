package usecase

import "fmt"

const (
	enhancePromptFormat = `This is a job description: "%s". It's too short. Please enhance it by adding more details about potential responsibilities, requirements, and what a typical day might look like in this role. Keep the tone professional and the content realistic based on the original description. format it using html tags not markdown, dont keep anything to be filled later on, dont return in a code section, make the heading bold and add line breaks too`

	emailPromptFormat = `Generate a professional email to apply for this job as %s at %s. Use the job description and requirements to tailor the email. Format using HTML tags but dont reply in a code section. Here's the job description: %s`
)

func EnhancePrompt(description string) string {
	return fmt.Sprintf(enhancePromptFormat, description)
}

func EmailPrompt(title, company, description string) string {
	return fmt.Sprintf(emailPromptFormat, title, company, description)
}
