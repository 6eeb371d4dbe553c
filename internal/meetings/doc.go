// Package meetings fetches a user's calendar through the connection broker and
// reduces it to a short view of recent and upcoming meetings.
//
// The broker's calendar tool does not commit to a response shape. Normalize
// accepts every shape observed so far (a bare list, {items}, {result:{items}},
// {data:{items}}, {response_data:{items}}) and returns an empty list for
// anything else. Entries are decoded item by item into the Google Calendar
// API event schema so one malformed entry never hides the rest.
//
// Partition splits events at a single instant: past holds the five most
// recent events strictly before it, future the five soonest at or after it,
// both in ascending start order.
package meetings
