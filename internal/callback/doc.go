// Package callback terminates the broker's OAuth popup flow.
//
// Outcome is a pure function of the three optional query values the broker
// appends to the callback URL. Render turns an outcome into a small HTML page
// that posts a single message to the window that opened the popup and closes
// itself. Without an opener the page shows the same information and navigates
// back to the application after a fixed delay.
//
// Nothing here keeps server-side state or calls the broker.
package callback
