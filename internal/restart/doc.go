// Package restart decides whether a maintenance run ends in a system
// restart. The decision keys off kernel-related package changes and the
// presence of an operator; absent an explicit yes, the machine stays up.
package restart
