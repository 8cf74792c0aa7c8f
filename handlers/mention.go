package handlers

import (
	"context"
	"log"

	"board-relay/command"
	"board-relay/models"
	"board-relay/scanner"
)

const untagMissReply = "I could not find the thread that post belongs to. Reply \"untag\" to one of my posts."

// handleMention runs a command or, without one, queues the sender and the
// accounts it mentions for the next post.
func handleMention(ctx context.Context, d *Drain, n models.Notification) {
	if n.Status == nil {
		return
	}
	acct := n.Account.Acct

	cmd, ok := command.Parse(scanner.PlainText(n.Status.Content))
	if !ok {
		d.state.AddForceMention(acct)
		for _, m := range n.Status.Mentions {
			if m.Acct != "" && m.Acct != d.env.Self() {
				d.state.AddForceMention(m.Acct)
			}
		}
		return
	}

	d.result.Commands++
	reply := cmd.Reply
	switch cmd.Name {
	case command.Notag:
		d.state.SetNotag(acct, true)
	case command.Tag:
		d.state.SetNotag(acct, false)
	case command.Untag:
		ref, found := d.state.ResolvePost(n.Status.InReplyToID)
		if found {
			d.state.Untag(ref.Target, ref.ThreadID, acct)
		} else {
			reply = untagMissReply
		}
	}
	log.Printf("Command %q from %s", cmd.Name, acct)

	if err := d.env.Reply(ctx, n, reply); err != nil {
		log.Printf("Failed to reply to %s: %v", acct, err)
	}
}
