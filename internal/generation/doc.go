// Package generation drafts content with a foundation model on AWS Bedrock.
//
// Prompts are Liquid templates, one per content type. The model is asked
// to answer with a "Title:" line followed by the body; the response is
// split into a content.GeneratedDraft.
package generation
