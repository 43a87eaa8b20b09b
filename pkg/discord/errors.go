package discord

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/discord/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

// restError unwraps a discordgo REST error.
func restError(err error) (*discordgo.RESTError, bool) {
	er := new(discordgo.RESTError)
	if !errors.As(err, &er) {
		return nil, false
	}
	return er, true
}

func restCode(er *discordgo.RESTError) int {
	if er.Message == nil {
		return discordgo.ErrCodeGeneralError
	}
	return er.Message.Code
}

// isGone reports whether the error means the channel, thread or message no longer exists.
func isGone(err error) bool {
	er, ok := restError(err)
	if !ok {
		return false
	}
	switch restCode(er) {
	case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage:
		return true
	case discordgo.ErrCodeGeneralError:
		// General is returned when a bare 404 comes back.
		return er.Response != nil && er.Response.StatusCode == http.StatusNotFound
	}
	return false
}

func isDenied(err error) bool {
	er, ok := restError(err)
	if !ok {
		return false
	}
	switch restCode(er) {
	case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
		return true
	}
	return false
}

// invalidField reports whether the request was refused because of the named form field.
func invalidField(err error, field string) bool {
	er, ok := restError(err)
	if !ok || restCode(er) != discordgo.ErrCodeInvalidFormBody {
		return false
	}
	return bytes.Contains(er.ResponseBody, []byte(`"`+field+`"`))
}

// isCategoryFull reports whether a channel could not be placed in its parent category.
func isCategoryFull(err error) bool {
	if invalidField(err, "parent_id") {
		return true
	}
	er, ok := restError(err)
	if !ok {
		return false
	}
	switch restCode(er) {
	case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeMaximumNumberOfGuildChannelsReached:
		return true
	}
	return false
}

// mapError translates a discordgo error into the errors the ticket engine understands.
func mapError(err error, operation string) error {
	if err == nil {
		return nil
	}
	switch {
	case isGone(err):
		return fmt.Errorf("error %s: %w", operation, tickets.ErrContainerGone)
	case invalidField(err, "name"):
		return fmt.Errorf("error %s: %w", operation, tickets.ErrNameRejected)
	case isDenied(err):
		return &tickets.Error{
			Kind:    tickets.KindAdapter,
			Message: messages.ErrAdapterPermissions,
			Err:     fmt.Errorf("error %s: %w", operation, err),
		}
	}
	return fmt.Errorf("error %s: %w", operation, err)
}

// result labels a mapped error for the request metrics.
func result(err error) string {
	switch {
	case err == nil:
		return monitoring.ResultSuccess
	case errors.Is(err, tickets.ErrContainerGone):
		return monitoring.ResultGone
	case tickets.KindOf(err) == tickets.KindAdapter:
		return monitoring.ResultDenied
	}
	return monitoring.ResultError
}
