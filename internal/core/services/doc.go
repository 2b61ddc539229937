// Package services implements the driving port interfaces.
//
// AccountService keeps OAuth clients, accounts and the default account, and
// runs the installed-app login flow. SessionService turns an account into
// authenticated Drive and Sheets clients.
package services
