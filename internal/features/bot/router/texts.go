package router

const (
	textWelcome = "👋 Welcome to Chart Analyst!\n\n" +
		"Send me a screenshot of a price chart and I will reply with trend, support and resistance levels.\n\n" +
		"Your ID: %d\n" +
		"Access is granted by an administrator. Send them your ID to get activated."

	textHelp = "📖 Commands\n\n" +
		"/start - welcome message\n" +
		"/status - your access status\n" +
		"/id - your numeric ID\n" +
		"/analyze - analyze the charts you have sent\n" +
		"/help - this message\n\n" +
		"Send a chart screenshot to have it analyzed."

	textAdminHelp = "\n\n🛠 Admin\n\n" +
		"/activate <user_id> [days] - grant access\n" +
		"/deactivate <user_id> - revoke access\n" +
		"/list_active - list active users"

	textID = "🆔 Your ID: %d"

	textStatusActive        = "✅ Your access is active until %s."
	textStatusActiveForever = "✅ Your access is active."
	textStatusInactive      = "❌ Your access is not active. Send /id to an administrator to request access."
	textPending             = "\n📥 Charts waiting for analysis: %d"

	textActivateUsage   = "Usage: /activate <user_id> [days]"
	textDeactivateUsage = "Usage: /deactivate <user_id>"

	textActivated       = "✅ User %d activated for %d days, until %s."
	textActivatedNotice = "✅ Your access has been activated until %s. Send a chart screenshot to get started."
	textDeactivated     = "🚫 User %d deactivated."
	textDeactivatedNote = "🚫 Your access has been deactivated."
	textNotifyFailed    = "\n⚠️ Could not notify user %d. They may not have started the bot yet."

	textNoActiveUsers = "No active users."
	textActiveHeader  = "👥 Active users (%d):"
	textActiveLine    = "\n• %s (%d) until %s"
	textActiveForever = "\n• %s (%d)"

	textReceivedAnalyzing = "📥 Chart received. Analyzing..."
	textReceivedQueued    = "📥 Chart saved. It will be analyzed once your access is activated."

	textAdminOnly    = "⛔ This command is for administrators only."
	textNotActive    = "⛔ Your access is not active. Send /id to an administrator to request access."
	textNoImage      = "📭 No pending charts. Send a screenshot first."
	textInProgress   = "⏳ Your previous analysis is still running. Charts sent since then will be analyzed right after it."
	textBusy         = "⏳ The bot is busy right now. Your charts are kept, try /analyze again in a minute."
	textInvalidInput = "⚠️ %s"
	textFailure      = "⚠️ Something went wrong. Please try again later."

	dateLayout = "2006-01-02 15:04 UTC"
)
