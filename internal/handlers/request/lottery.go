package request

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/ArowuTest/draft-lottery-backend/internal/lottery"
	"github.com/ArowuTest/draft-lottery-backend/internal/services"
)

var errBlankTeamName = errors.New("team name must not be blank")

type CreateLotteryRequest struct {
	Name                  string   `json:"name"`
	TeamCount             int      `json:"teamCount"`
	RequiredVerifierCount int      `json:"requiredVerifierCount"`
	TeamNames             []string `json:"teamNames,omitempty"`
}

func (req *CreateLotteryRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.TeamCount, validation.Required, validation.Min(lottery.MinTeams), validation.Max(lottery.MaxTeams)),
		validation.Field(&req.RequiredVerifierCount, validation.Min(0)),
		validation.Field(&req.TeamNames, validation.Length(0, req.TeamCount)),
	)
}

func (req *CreateLotteryRequest) ToInput() services.CreateSessionInput {
	return services.CreateSessionInput{
		Name:                  req.Name,
		TeamCount:             req.TeamCount,
		RequiredVerifierCount: req.RequiredVerifierCount,
		TeamNames:             req.TeamNames,
	}
}

// UpdateTeamRequest edits a team. Omitted fields are left as they are.
type UpdateTeamRequest struct {
	Name   *string  `json:"name,omitempty"`
	Emails []string `json:"emails,omitempty"`
}

func (req *UpdateTeamRequest) Validate() error {
	if req.Name == nil && req.Emails == nil {
		return errors.New("nothing to update")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return errBlankTeamName
	}
	for i, email := range req.Emails {
		if err := validation.Validate(strings.TrimSpace(email), validation.Required, is.Email); err != nil {
			return fmt.Errorf("emails[%d]: %w", i, err)
		}
	}
	return nil
}

func (req *UpdateTeamRequest) ToUpdate() services.TeamUpdate {
	return services.TeamUpdate{Name: req.Name, Emails: req.Emails}
}
