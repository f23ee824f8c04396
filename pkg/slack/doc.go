// Package slack verifies inbound [slash command] and [interaction] requests,
// and calls the [Web API] on behalf of installed workspaces: to fetch user
// profiles, to complete [OAuth v2] installations, and to deliver views.
//
// [slash command]: https://docs.slack.dev/interactivity/implementing-slash-commands
// [interaction]: https://docs.slack.dev/interactivity/handling-user-interaction
// [Web API]: https://docs.slack.dev/apis/web-api
// [OAuth v2]: https://docs.slack.dev/authentication/installing-with-oauth
package slack
