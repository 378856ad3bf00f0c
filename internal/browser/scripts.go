// Package browser drives a real Chrome instance over CDP so fill passes run against live
// pages, including pages whose frameworks only react to native setter calls and events.
package browser

// Page scripts are self-contained function declarations called with the control as
// `this`. They close over nothing; every input arrives as a call argument.

// labelForJS returns the text of the <label for> referencing the control's id.
const labelForJS = `function() {
	if (!this.id) return "";
	const doc = this.ownerDocument || document;
	const escape = (window.CSS && CSS.escape) ? CSS.escape : (s) => s.replace(/["\\]/g, "\\$&");
	const label = doc.querySelector('label[for="' + escape(this.id) + '"]');
	return label ? (label.textContent || "") : "";
}`

// containerTextJS finds the nearest ancestor matching the first container selector that
// has a match, then returns the text of the first descendant matching a target selector.
const containerTextJS = `function(containers, targets) {
	let box = null;
	for (const sel of containers) {
		box = this.closest(sel);
		if (box) break;
	}
	if (!box) return {found: false, text: ""};
	for (const sel of targets) {
		const el = box.querySelector(sel);
		if (el) return {found: true, text: el.textContent || ""};
	}
	return {found: false, text: ""};
}`

// injectJS writes value through the prototype's own value setter, bypassing any setter a
// framework installed on the instance, then replays the events a typing user produces.
// The input event is sent a second time because several frameworks listen to nothing else.
const injectJS = `function(value) {
	if (!value) return false;
	const win = (this.ownerDocument && this.ownerDocument.defaultView) || window;
	let proto = null;
	if (this instanceof win.HTMLTextAreaElement) {
		proto = win.HTMLTextAreaElement.prototype;
	} else if (this instanceof win.HTMLInputElement) {
		proto = win.HTMLInputElement.prototype;
	}
	const desc = proto && Object.getOwnPropertyDescriptor(proto, "value");
	if (!desc || typeof desc.set !== "function") {
		throw new Error("native value setter not found for <" + this.tagName.toLowerCase() + ">");
	}
	desc.set.call(this, value);
	for (const type of ["input", "change", "blur", "keydown", "keyup"]) {
		this.dispatchEvent(new Event(type, {bubbles: true}));
	}
	this.dispatchEvent(new Event("input", {bubbles: true}));
	return true;
}`

// describeJS returns a short identifier for logs.
const describeJS = `function() {
	let s = this.tagName.toLowerCase();
	if (this.id) s += "#" + this.id;
	const name = this.getAttribute("name");
	if (name) s += "[name=" + name + "]";
	return s;
}`

// containerResult is the JSON shape returned by containerTextJS.
type containerResult struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}
