// Package chat is the real-time messaging client used by the patient and
// doctor chat screens.
//
// A View owns one conversation scope at a time: it loads the durable
// history, keeps a single live channel joined to the conversation group and
// holds the ordered message log that the presentation layer renders. Sends
// are optimistic: the message is appended locally at once, then published on
// the channel and written to the durable store independently. Each message
// carries a delivery status so failures are visible instead of silent.
package chat
