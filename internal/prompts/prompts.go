// Package prompts builds the seed conversations of the questioner and the oracle.
package prompts

import (
	"fmt"
	"github.com/myrjola/twentyq/internal/models"
	"strings"
)

// Confirmation is the phrase the oracle is told to use when the target is guessed.
const Confirmation = "Yes! That's correct."

const questionerRules = "You are playing an interactive game with the user, who is assigned " +
	"an item from a list of candidates. Ask as few questions as possible to identify the item, " +
	"making only one question at each turn.\n" +
	"\nThe user can only respond with 'yes' or 'no'."

const stepwiseFormat = "\nFormat your output in the following way:\n" +
	"CANDIDATES: item, item, item, item ...\n" +
	"QUESTION: text of the question"

const oracleRules = "You are playing an interactive game with the user, in which you are assigned one item " +
	"from a list of candidates." +
	"\nThe user will have to guess which one it is by asking yes/no questions, and " +
	"you have to strictly respond to each question only with 'yes' or 'no'." +
	"\nIf the user correctly guesses exactly your assigned item, respond with '" + Confirmation + "'." +
	"\nThe item assigned to you is %s."

// Seeds are the initial conversations of both roles.
type Seeds struct {
	// Questioner holds the system rules followed by the user message listing the candidates.
	Questioner []models.Message
	// Oracle holds only the system rules naming the target.
	Oracle []models.Message
}

// Build returns the seed conversations for candidates and target. The stepwise variant additionally requires the
// questioner to answer with a CANDIDATES line followed by a QUESTION line.
//
// target is expected to be one of candidates, Build does not check it.
func Build(candidates []string, target string, stepwise bool) Seeds {
	rules := questionerRules
	if stepwise {
		rules += stepwiseFormat
	}
	return Seeds{
		Questioner: []models.Message{
			{Role: models.RoleSystem, Content: rules},
			{Role: models.RoleUser, Content: fmt.Sprintf("This is the list of candidates: %s.",
				strings.Join(candidates, ", "))},
		},
		Oracle: []models.Message{
			{Role: models.RoleSystem, Content: fmt.Sprintf(oracleRules, target)},
		},
	}
}

// IsStepwise reports whether the game set selects the stepwise variant.
func IsStepwise(gameSet string) bool {
	return strings.Contains(gameSet, "stepwise")
}
