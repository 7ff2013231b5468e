// Package answer assembles retrieved context and a question into a
// completion prompt and turns the model's reply into an Answer.
//
// The prompt restricts the model to the supplied context, asks it to cite
// the messages it used and to reply with CannotFind when the context is
// insufficient. When retrieval yields no context at all the Answerer replies
// with CannotFind itself and never calls the model.
package answer
