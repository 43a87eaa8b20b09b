package tickets

import (
	"strconv"
	"strings"
	"unicode"
)

// maxContainerName is the longest channel name the platform accepts.
const maxContainerName = 100

// Vars are the values substituted into intake messages, quick replies and ticket names.
type Vars struct {
	// User is the owner's mention.
	User     string
	Username string
	Panel    string
	Num      int
	Server   string

	// Claimer is the claimant's mention, empty when unclaimed.
	Claimer string
}

// Render substitutes {user}, {username}, {panel}, {num}, {server} and {claimer}.
func Render(s string, v Vars) string {
	claimer := v.Claimer
	if claimer == "" {
		claimer = "nobody"
	}
	return strings.NewReplacer(
		"{user}", v.User,
		"{username}", v.Username,
		"{panel}", v.Panel,
		"{num}", strconv.Itoa(v.Num),
		"{server}", v.Server,
		"{claimer}", claimer,
	).Replace(s)
}

// ContainerName renders a ticket name template into a valid channel name: lower case, spaces as
// dashes, at most 100 characters.
func ContainerName(template string, v Vars) string {
	name := strings.ToLower(Render(template, v))
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return '-'
		case r == '#' || r == '@' || r == '<' || r == '>':
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, "-")

	if r := []rune(name); len(r) > maxContainerName {
		name = string(r[:maxContainerName])
	}
	if name == "" {
		name = fallbackName(v.Num)
	}
	return name
}

// fallbackName is used when the platform rejects the rendered name.
func fallbackName(num int) string {
	return "ticket-" + strconv.Itoa(num)
}
