package bot

const helpText = "Here's what I can do:\n\n" +
	"* `hi` - say hello\n" +
	"* `who do i have` - I'll send you your secret santa allocation\n" +
	"* `help` - show this message\n"

const adminHelpText = "Here's what I can do:\n\n" +
	"* `hi` - say hello\n" +
	"* `start a new secret santa: <name>` - start a secret santa with everyone in the team\n" +
	"* `add person: <name>` or `add person: <name> <email>` - add someone by hand\n" +
	"* `add admin: <name>` - let someone else run the show\n" +
	"* `remove person: <name>` - take someone out of the draw\n" +
	"* `print everyone` or `print everyone with allocations` - list participants\n" +
	"* `do allocations` or `do allocations redo` - draw the gift circle\n" +
	"* `who do i have` - I'll send you your secret santa allocation\n" +
	"* `who has <name>?` - who is buying for them\n" +
	"* `who does <name> have?` - who they are buying for\n" +
	"* `send all allocations` - DM everyone their allocation card\n" +
	"* `send allocation to <name>` - resend one allocation card\n" +
	"* `send admin help to <name>` - DM another admin this list\n" +
	"* `post welcome message` - introduce me in the team channel\n" +
	"* `help` - show this message\n"

const adminHelpMessage = "Hi %s! You've been made an admin of the secret santa.\n\n" + adminHelpText

const welcomeMessage = "Ho ho ho! I'm the Secret Santa bot. " +
	"Message me directly and type `help` to see what I can do. " +
	"When allocations are drawn I'll send each of you a card with a reveal " +
	"button, so nobody else sees who you're buying for."
