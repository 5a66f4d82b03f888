// Package source describes the entity sources that a node identifier can resolve to.
//
// A Descriptor is static metadata handed to the registration pass by schema
// introspection: the output Shape it produces, its unique constraints, the
// behaviors it declares and a Getter that fetches one row by key. The package
// never discovers sources itself; it only models them.
//
// # Behaviors
//
// Eligibility is an explicit set-membership test against the Behavior
// enumeration. A source must declare both BehaviorSelect and BehaviorNode to
// receive a node identifier:
//
//	behaviors, err := source.ParseBehaviors("select node -update")
//	if err != nil {
//	    return err
//	}
//	behaviors.Has(source.BehaviorNode) // true
//
// # Key specs
//
// A KeySpec is an ordered list of column/value pairs. The order always follows
// the primary key declaration, which is what makes encode and decode exact
// inverses of each other.
//
// # Filters
//
// A Filter is an optional CEL expression evaluated against each descriptor
// during registration, for deployments that need to exclude sources by name,
// namespace or tag without touching introspection:
//
//	f, err := source.CompileFilter(`!(name in ["audit_log", "migrations"])`)
package source
