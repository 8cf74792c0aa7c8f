package command

// Command names, as typed in a mention.
const (
	Notag = "notag"
	Tag   = "tag"
	Untag = "untag"
)

// Command is a mention command and the direct reply it earns.
type Command struct {
	Name  string
	Reply string
}

// AllCommands in matching priority order.
var AllCommands = []Command{
	{
		Name:  Notag,
		Reply: "You will no longer be mentioned. Send \"tag\" to be mentioned again.",
	},
	{
		Name:  Tag,
		Reply: "You will be mentioned again when threads you reblogged are dumped.",
	},
	{
		Name:  Untag,
		Reply: "You will not be mentioned in this thread's dump.",
	},
}

// NoticeText is the one-time reply sent on an account's first engagement.
const NoticeText = "Thanks for the reblog! You will be mentioned when this thread is dumped. " +
	"Reply \"untag\" to a post to skip its thread, or send \"notag\" to never be mentioned."
